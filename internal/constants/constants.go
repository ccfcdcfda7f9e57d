package constants

import "time"

// Session and context keys
const (
	SessionCookieName = "labelit_session"

	SessionKeyUsername = "username"
	SessionKeyLanguage = "language"
	SessionKeyLocation = "location"

	ContextKeyUsername    = "username"
	ContextKeyRequestInfo = "request_info"
	ContextKeyImage       = "image"

	HeaderRequestID = "X-Request-ID"
)

// Account rules
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 3
	// Ages at or below this value are discarded.
	MinRecordedAge  = 12
	DefaultLanguage = "en"
)

// Gamification points
const (
	PointsImageUpload = 10
	PointsLabelAdd    = 5
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 8
	MaxPageSize     = 50
	// FeedCandidateLimit caps how many images the feed considers before paging.
	FeedCandidateLimit = 100
)

// Statistics
const (
	StatsCacheTTL       = 5 * time.Minute
	RecentWindow        = 7 * 24 * time.Hour
	DefaultTimelineDays = 30
	MaxTimelineDays     = 365
)

// Uploads and labels
const (
	MaxUploadSize          = 10 << 20
	MinImageDimension      = 10
	MaxImageDimension      = 10000
	MaxCompressedDimension = 1200
	JPEGQuality            = 85
	MaxTextLength          = 100
	MaxFilenameLength      = 100
	ArchiveTitleLength     = 50
	ActivityTextLength     = 50
)

// Geolocation
const (
	GeolocationTimeout     = 5 * time.Second
	IPLocationAccuracy     = 10000
	ManualLocationAccuracy = 1
	MaxDisplayNameLength   = 100
)
