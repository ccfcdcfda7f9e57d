// Package geolocation resolves best-effort image locations from the caller's
// IP address, manual coordinates and reverse geocoding.
package geolocation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/netip"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"github.com/yukikurage/labelit-api/internal/config"
	"github.com/yukikurage/labelit-api/internal/constants"
	"github.com/yukikurage/labelit-api/internal/logging"
	"github.com/yukikurage/labelit-api/internal/metrics"
	"github.com/yukikurage/labelit-api/internal/models"
	"github.com/yukikurage/labelit-api/internal/utils"
)

const maxResponseSize = 1 << 20

var (
	// ErrInvalidCoordinates is returned for latitudes outside [-90, 90] or longitudes outside [-180, 180].
	ErrInvalidCoordinates = errors.New("coordinates out of range")
	// ErrZeroCoordinates is returned when both coordinates are zero.
	ErrZeroCoordinates = errors.New("please enter non-zero coordinates")
	// ErrNoCoordinates is returned when a provider answers without a usable position.
	ErrNoCoordinates = errors.New("provider returned no coordinates")
)

// Location is a resolved position
type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	City        string  `json:"city,omitempty"`
	Country     string  `json:"country,omitempty"`
	State       string  `json:"state,omitempty"`
	DisplayName string  `json:"display_name,omitempty"`
	Method      string  `json:"method"`
	Accuracy    int     `json:"accuracy"`
	Service     string  `json:"service,omitempty"`
}

// Address is the result of reverse geocoding
type Address struct {
	City        string `json:"city,omitempty"`
	Country     string `json:"country,omitempty"`
	State       string `json:"state,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// Service talks to the IP lookup and reverse geocoding providers
type Service struct {
	client    *http.Client
	userAgent string
	timeout   time.Duration
	reverse   string
	providers []*provider
}

type provider struct {
	name  string
	url   string
	parse func([]byte) (*Location, error)
	cb    *gobreaker.CircuitBreaker[*Location]
}

// NewService creates a Service from configuration
func NewService(cfg config.GeolocationConfig) *Service {
	return &Service{
		client:    &http.Client{Timeout: cfg.Timeout},
		userAgent: cfg.UserAgent,
		timeout:   cfg.Timeout,
		reverse:   cfg.ReverseURL,
		providers: []*provider{
			newProvider("ipapi.co", cfg.PrimaryURL, parseIPAPI),
			newProvider("ip-api.com", cfg.FallbackURL, parseIPAPICom),
		},
	}
}

func newProvider(name, endpoint string, parse func([]byte) (*Location, error)) *provider {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)

	cb := gobreaker.NewCircuitBreaker[*Location](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("geolocation circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
		},
	})

	return &provider{name: name, url: endpoint, parse: parse, cb: cb}
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

// IPLocation looks up clientIP with the primary provider, then the fallback.
// Non-public addresses are left out of the request, so the providers answer
// for the address they see. It reports false when neither produced coordinates.
func (s *Service) IPLocation(ctx context.Context, clientIP string) (*Location, bool) {
	logger := logging.Ctx(ctx)
	ip := publicIP(clientIP)

	for _, p := range s.providers {
		location, err := p.cb.Execute(func() (*Location, error) {
			body, err := s.get(ctx, lookupURL(p.url, ip), nil)
			if err != nil {
				return nil, err
			}
			return p.parse(body)
		})
		if err != nil {
			metrics.GeolocationLookups.WithLabelValues(p.name, "failure").Inc()
			logger.Warn().Err(err).Str("provider", p.name).Msg("IP location lookup failed")
			continue
		}

		metrics.GeolocationLookups.WithLabelValues(p.name, "success").Inc()
		location.Method = models.LocationMethodIP
		location.Accuracy = constants.IPLocationAccuracy
		location.Service = p.name
		return location, true
	}

	return nil, false
}

// ReverseGeocode resolves coordinates to an address
func (s *Service) ReverseGeocode(ctx context.Context, lat, lon float64) (*Address, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	query.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	query.Set("format", "json")
	query.Set("addressdetails", "1")
	query.Set("zoom", "10")

	body, err := s.get(ctx, s.reverse, query)
	if err != nil {
		metrics.GeolocationLookups.WithLabelValues("nominatim", "failure").Inc()
		return nil, err
	}

	var resp struct {
		DisplayName string            `json:"display_name"`
		Address     map[string]string `json:"address"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		metrics.GeolocationLookups.WithLabelValues("nominatim", "failure").Inc()
		return nil, fmt.Errorf("decode reverse geocoding response: %w", err)
	}
	metrics.GeolocationLookups.WithLabelValues("nominatim", "success").Inc()

	address := &Address{
		Country:     resp.Address["country"],
		State:       resp.Address["state"],
		DisplayName: utils.TruncateRunes(resp.DisplayName, constants.MaxDisplayNameLength),
	}
	for _, key := range []string{"city", "town", "village", "hamlet", "suburb"} {
		if city := resp.Address[key]; city != "" {
			address.City = city
			break
		}
	}
	return address, nil
}

// Manual builds a location from user-entered coordinates, enriched with
// reverse geocoding when the provider answers.
func (s *Service) Manual(ctx context.Context, lat, lon float64) (*Location, error) {
	if err := ValidateCoordinates(lat, lon); err != nil {
		return nil, err
	}
	if lat == 0 && lon == 0 {
		return nil, ErrZeroCoordinates
	}

	location := &Location{
		Latitude:  lat,
		Longitude: lon,
		Method:    models.LocationMethodManual,
		Accuracy:  constants.ManualLocationAccuracy,
	}

	address, err := s.ReverseGeocode(ctx, lat, lon)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("reverse geocoding failed")
		return location, nil
	}
	location.City = address.City
	location.Country = address.Country
	location.State = address.State
	location.DisplayName = address.DisplayName
	return location, nil
}

// ValidateCoordinates checks latitude and longitude ranges
func ValidateCoordinates(lat, lon float64) error {
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("%w: latitude %v, longitude %v", ErrInvalidCoordinates, lat, lon)
	}
	return nil
}

// lookupURL fills the "{ip}" placeholder of a provider endpoint.
func lookupURL(endpoint, ip string) string {
	if ip == "" {
		endpoint = strings.ReplaceAll(endpoint, "{ip}/", "")
	}
	return strings.ReplaceAll(endpoint, "{ip}", url.PathEscape(ip))
}

// publicIP returns the normalized address when it is routable on the
// internet, and "" otherwise.
func publicIP(raw string) string {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	addr = addr.Unmap()
	if !addr.IsGlobalUnicast() || addr.IsPrivate() || addr.IsLoopback() {
		return ""
	}
	return addr.String()
}

func (s *Service) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Host)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
}

func parseIPAPI(body []byte) (*Location, error) {
	var resp struct {
		Latitude    float64 `json:"latitude"`
		Longitude   float64 `json:"longitude"`
		City        string  `json:"city"`
		CountryName string  `json:"country_name"`
		Error       bool    `json:"error"`
		Reason      string  `json:"reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode ipapi.co response: %w", err)
	}
	if resp.Error {
		return nil, fmt.Errorf("ipapi.co: %s", resp.Reason)
	}
	if resp.Latitude == 0 || resp.Longitude == 0 {
		return nil, ErrNoCoordinates
	}
	return &Location{
		Latitude:  resp.Latitude,
		Longitude: resp.Longitude,
		City:      resp.City,
		Country:   resp.CountryName,
	}, nil
}

func parseIPAPICom(body []byte) (*Location, error) {
	var resp struct {
		Status  string  `json:"status"`
		Message string  `json:"message"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		City    string  `json:"city"`
		Country string  `json:"country"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode ip-api.com response: %w", err)
	}
	if resp.Status != "" && resp.Status != "success" {
		return nil, fmt.Errorf("ip-api.com: %s", resp.Message)
	}
	if resp.Lat == 0 || resp.Lon == 0 {
		return nil, ErrNoCoordinates
	}
	return &Location{
		Latitude:  resp.Lat,
		Longitude: resp.Lon,
		City:      resp.City,
		Country:   resp.Country,
	}, nil
}
