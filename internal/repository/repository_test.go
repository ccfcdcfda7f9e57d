package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/labelit-api/internal/config"
	"github.com/yukikurage/labelit-api/internal/database"
	"github.com/yukikurage/labelit-api/internal/models"
	"gorm.io/gorm"
)

// RepositoryTestSuite exercises the GORM repositories against sqlite
type RepositoryTestSuite struct {
	suite.Suite
	db     *gorm.DB
	ctx    context.Context
	users  UserRepository
	images ImageRepository
	labels LabelRepository
	stats  StatsRepository
	events ActivityRepository
}

// SetupTest runs before each test
func (suite *RepositoryTestSuite) SetupTest() {
	db, err := database.Connect(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(suite.T().TempDir(), "labelit.db"),
		LogLevel: "silent",
	})
	suite.Require().NoError(err)
	suite.Require().NoError(database.Migrate(db))

	suite.db = db
	suite.ctx = context.Background()
	suite.users = NewUserRepository(db)
	suite.images = NewImageRepository(db)
	suite.labels = NewLabelRepository(db)
	suite.stats = NewStatsRepository(db)
	suite.events = NewActivityRepository(db)
}

// TearDownTest runs after each test
func (suite *RepositoryTestSuite) TearDownTest() {
	suite.Require().NoError(database.Close(suite.db))
}

func (suite *RepositoryTestSuite) createUser(username string) *models.User {
	user := &models.User{Username: username, PasswordHash: "hash", PreferredLanguage: "en", IsActive: true}
	suite.Require().NoError(suite.users.Create(suite.ctx, user))
	return user
}

func (suite *RepositoryTestSuite) createImage(title string, category models.Category, uploader string, at time.Time) *models.Image {
	image := &models.Image{
		ID:         uuid.NewString(),
		Title:      title,
		Category:   category,
		ImagePath:  "images/" + title + ".jpg",
		UploadedBy: uploader,
		UploadedAt: at,
	}
	suite.Require().NoError(suite.images.Create(suite.ctx, image))
	return image
}

func (suite *RepositoryTestSuite) addLabel(imageID, text, language, by string) *models.Label {
	label := &models.Label{
		ImageID:  imageID,
		Text:     text,
		Language: language,
		AddedBy:  by,
		AddedAt:  time.Now().UTC(),
	}
	suite.Require().NoError(suite.labels.Upsert(suite.ctx, label))
	return label
}

func (suite *RepositoryTestSuite) labelCount(imageID string) int64 {
	image, err := suite.images.FindByID(suite.ctx, imageID)
	suite.Require().NoError(err)
	return image.LabelCount
}

func (suite *RepositoryTestSuite) TestUsers_FindAndDeactivate() {
	suite.createUser("alice123")

	user, err := suite.users.FindActiveByUsername(suite.ctx, "alice123")
	suite.Require().NoError(err)
	assert.True(suite.T(), user.IsActive)

	suite.Require().NoError(suite.users.Deactivate(suite.ctx, "alice123"))
	_, err = suite.users.FindActiveByUsername(suite.ctx, "alice123")
	assert.ErrorIs(suite.T(), err, gorm.ErrRecordNotFound)

	// Still present for history.
	_, err = suite.users.FindByUsername(suite.ctx, "alice123")
	assert.NoError(suite.T(), err)

	assert.ErrorIs(suite.T(), suite.users.Deactivate(suite.ctx, "alice123"), gorm.ErrRecordNotFound)
}

func (suite *RepositoryTestSuite) TestUsers_DuplicateUsername() {
	suite.createUser("alice123")
	err := suite.users.Create(suite.ctx, &models.User{Username: "alice123", PasswordHash: "hash", IsActive: true})
	assert.ErrorIs(suite.T(), err, gorm.ErrDuplicatedKey)
}

func (suite *RepositoryTestSuite) TestLabels_UpsertReplacesAndCounts() {
	suite.createUser("alice123")
	suite.createUser("bob")
	image := suite.createImage("Cat", models.CategoryAnimals, "alice123", time.Now().UTC())

	first := suite.addLabel(image.ID, "बिल्ली", "hi", "alice123")
	assert.Equal(suite.T(), int64(1), suite.labelCount(image.ID))

	// Same key again replaces the row with a new identity.
	second := suite.addLabel(image.ID, "बिल्ली", "hi", "bob")
	assert.NotEqual(suite.T(), first.ID, second.ID)
	assert.Equal(suite.T(), int64(1), suite.labelCount(image.ID))

	suite.addLabel(image.ID, "cat", "en", "bob")
	suite.addLabel(image.ID, "बिल्ली", "mr", "bob")
	assert.Equal(suite.T(), int64(3), suite.labelCount(image.ID))

	labels, err := suite.labels.ListByImage(suite.ctx, image.ID)
	suite.Require().NoError(err)
	assert.Len(suite.T(), labels, 3)
	assert.Equal(suite.T(), "mr", labels[0].Language)

	var live int64
	suite.Require().NoError(suite.db.Model(&models.Label{}).Where("image_id = ?", image.ID).Count(&live).Error)
	assert.Equal(suite.T(), live, suite.labelCount(image.ID))
}

func (suite *RepositoryTestSuite) TestLabels_UpsertErrors() {
	suite.createUser("alice123")
	image := suite.createImage("Cat", models.CategoryAnimals, "alice123", time.Now().UTC())

	err := suite.labels.Upsert(suite.ctx, &models.Label{ImageID: "missing", Text: "x", Language: "en", AddedBy: "alice123", AddedAt: time.Now()})
	assert.ErrorIs(suite.T(), err, ErrImageNotFound)

	err = suite.labels.Upsert(suite.ctx, &models.Label{ImageID: image.ID, Text: "x", Language: "en", AddedBy: "ghost", AddedAt: time.Now()})
	assert.ErrorIs(suite.T(), err, ErrUnknownContributor)
	assert.Equal(suite.T(), int64(0), suite.labelCount(image.ID))
}

func (suite *RepositoryTestSuite) TestImages_QueryFilters() {
	suite.createUser("alice123")
	now := time.Now().UTC()
	cat := suite.createImage("Cat", models.CategoryAnimals, "alice123", now.Add(-2*time.Hour))
	dog := suite.createImage("Dog", models.CategoryAnimals, "alice123", now.Add(-time.Hour))
	pizza := suite.createImage("Pizza", models.CategoryFood, "alice123", now)

	suite.addLabel(cat.ID, "बिल्ली", "hi", "alice123")
	suite.addLabel(cat.ID, "cat", "en", "alice123")
	suite.addLabel(pizza.ID, "cheese", "en", "alice123")

	all, err := suite.images.Query(suite.ctx, ImageFilter{})
	suite.Require().NoError(err)
	suite.Require().Len(all, 3)
	assert.Equal(suite.T(), pizza.ID, all[0].ID)
	assert.Equal(suite.T(), cat.ID, all[2].ID)
	assert.Equal(suite.T(), int64(2), all[2].TotalLabels)
	assert.Equal(suite.T(), []string{"en", "hi"}, all[2].Languages)
	assert.Equal(suite.T(), []string{}, all[1].Languages)

	animals, err := suite.images.Query(suite.ctx, ImageFilter{Category: string(models.CategoryAnimals)})
	suite.Require().NoError(err)
	assert.Len(suite.T(), animals, 2)

	hindi, err := suite.images.Query(suite.ctx, ImageFilter{Category: string(models.CategoryAnimals), Language: "hi"})
	suite.Require().NoError(err)
	suite.Require().Len(hindi, 1)
	assert.Equal(suite.T(), cat.ID, hindi[0].ID)
	// Annotations count every label, not only the filtered language.
	assert.Equal(suite.T(), int64(2), hindi[0].TotalLabels)

	byLabel, err := suite.images.Query(suite.ctx, ImageFilter{Search: "CHEESE"})
	suite.Require().NoError(err)
	suite.Require().Len(byLabel, 1)
	assert.Equal(suite.T(), pizza.ID, byLabel[0].ID)

	byTitle, err := suite.images.Query(suite.ctx, ImageFilter{Search: "do"})
	suite.Require().NoError(err)
	suite.Require().Len(byTitle, 1)
	assert.Equal(suite.T(), dog.ID, byTitle[0].ID)

	page, err := suite.images.Query(suite.ctx, ImageFilter{Limit: 1, Offset: 1})
	suite.Require().NoError(err)
	suite.Require().Len(page, 1)
	assert.Equal(suite.T(), dog.ID, page[0].ID)

	total, err := suite.images.Count(suite.ctx, ImageFilter{Language: "en"})
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), total)
}

func (suite *RepositoryTestSuite) TestImages_IncrementViewCount() {
	suite.createUser("alice123")
	image := suite.createImage("Cat", models.CategoryAnimals, "alice123", time.Now().UTC())

	suite.Require().NoError(suite.images.IncrementViewCount(suite.ctx, image.ID))
	suite.Require().NoError(suite.images.IncrementViewCount(suite.ctx, image.ID))

	found, err := suite.images.FindByID(suite.ctx, image.ID)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(2), found.ViewCount)
}

func (suite *RepositoryTestSuite) TestStats_OverviewAndGroups() {
	suite.createUser("alice123")
	suite.createUser("bob")
	suite.createUser("carol")
	suite.Require().NoError(suite.users.Deactivate(suite.ctx, "carol"))

	now := time.Now().UTC()
	cat := suite.createImage("Cat", models.CategoryAnimals, "alice123", now)
	suite.createImage("Dog", models.CategoryAnimals, "bob", now.AddDate(0, 0, -10))
	pizza := suite.createImage("Pizza", models.CategoryFood, "bob", now)

	suite.addLabel(cat.ID, "cat", "en", "alice123")
	suite.addLabel(cat.ID, "बिल्ली", "hi", "bob")
	suite.addLabel(pizza.ID, "pizza", "en", "bob")

	overview, err := suite.stats.Overview(suite.ctx, now.AddDate(0, 0, -7))
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(3), overview.TotalImages)
	assert.Equal(suite.T(), int64(3), overview.TotalLabels)
	assert.Equal(suite.T(), int64(2), overview.TotalUsers)
	assert.Equal(suite.T(), int64(2), overview.LanguagesUsed)
	assert.Equal(suite.T(), 1.5, overview.AvgLabelsPerImage)
	assert.Equal(suite.T(), int64(2), overview.RecentImages)
	assert.Equal(suite.T(), int64(3), overview.RecentLabels)

	categories, err := suite.stats.CountByCategory(suite.ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []GroupCount{{Name: "Animals", Count: 2}, {Name: "Food", Count: 1}}, categories)

	languages, err := suite.stats.CountByLanguage(suite.ctx)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), []GroupCount{{Name: "en", Count: 2}, {Name: "hi", Count: 1}}, languages)

	times, err := suite.stats.UploadTimes(suite.ctx, now.AddDate(0, 0, -30))
	suite.Require().NoError(err)
	assert.Len(suite.T(), times, 3)
}

func (suite *RepositoryTestSuite) TestStats_EmptyOverview() {
	overview, err := suite.stats.Overview(suite.ctx, time.Now().AddDate(0, 0, -7))
	suite.Require().NoError(err)
	assert.Equal(suite.T(), Overview{}, overview)
}

func (suite *RepositoryTestSuite) TestStats_UserSummaryRank() {
	suite.createUser("alice123")
	suite.createUser("bob")
	suite.createUser("carol")

	record := func(user string, points int) {
		suite.Require().NoError(suite.events.Record(suite.ctx, &models.UserActivity{
			UserID:       user,
			ActivityType: models.ActivityLabelAdd,
			PointsEarned: points,
			Timestamp:    time.Now().UTC(),
		}))
	}
	record("alice123", 10)
	record("alice123", 5)
	record("bob", 20)
	record("carol", 15)

	image := suite.createImage("Cat", models.CategoryAnimals, "alice123", time.Now().UTC())
	suite.addLabel(image.ID, "cat", "en", "alice123")
	suite.addLabel(image.ID, "बिल्ली", "hi", "alice123")

	summary, err := suite.stats.UserSummary(suite.ctx, "alice123")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(1), summary.ImagesUploaded)
	assert.Equal(suite.T(), int64(2), summary.LabelsAdded)
	assert.Equal(suite.T(), int64(2), summary.LanguagesContributed)
	assert.Equal(suite.T(), int64(1), summary.CategoriesContributed)
	assert.Equal(suite.T(), int64(15), summary.TotalPoints)
	// bob has more points; carol ties and does not count.
	assert.Equal(suite.T(), int64(2), summary.UserRank)

	nobody, err := suite.stats.UserSummary(suite.ctx, "dave")
	suite.Require().NoError(err)
	assert.Equal(suite.T(), int64(0), nobody.TotalPoints)
	assert.Equal(suite.T(), int64(4), nobody.UserRank)
}

func (suite *RepositoryTestSuite) TestLabels_ListForExport() {
	suite.createUser("alice123")
	image := suite.createImage("Cat", models.CategoryAnimals, "alice123", time.Now().UTC())
	suite.addLabel(image.ID, "cat", "en", "alice123")

	rows, err := suite.labels.ListForExport(suite.ctx)
	suite.Require().NoError(err)
	suite.Require().Len(rows, 1)
	assert.Equal(suite.T(), "Cat", rows[0].ImageTitle)
	assert.Equal(suite.T(), "cat", rows[0].Text)
}

func (suite *RepositoryTestSuite) TestEvents_LogEvent() {
	user := "alice123"
	suite.createUser(user)

	event := &models.AnalyticsEvent{
		EventType: models.EventUserLogin,
		UserID:    &user,
		Metadata:  map[string]interface{}{"language": "hi"},
		Timestamp: time.Now().UTC(),
	}
	suite.Require().NoError(suite.events.LogEvent(suite.ctx, event))

	var stored models.AnalyticsEvent
	suite.Require().NoError(suite.db.First(&stored, event.ID).Error)
	assert.Equal(suite.T(), "hi", stored.Metadata["language"])
}

// TestRepositoryTestSuite runs the test suite
func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
