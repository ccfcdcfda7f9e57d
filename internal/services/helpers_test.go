package services

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/labelit-api/internal/cache"
	"github.com/yukikurage/labelit-api/internal/config"
	"github.com/yukikurage/labelit-api/internal/database"
	"github.com/yukikurage/labelit-api/internal/repository"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testEnv wires every service against one sqlite database.
type testEnv struct {
	db       *gorm.DB
	cache    *cache.Cache
	users    repository.UserRepository
	images   repository.ImageRepository
	labels   repository.LabelRepository
	activity *ActivityRecorder
	auth     *AuthService
	image    *ImageService
	label    *LabelService
	stats    *StatsService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.Connect(config.DatabaseConfig{
		Driver:   "sqlite",
		Path:     filepath.Join(t.TempDir(), "labelit.db"),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	c, err := cache.New("test", time.Minute)
	require.NoError(t, err)

	t.Cleanup(func() {
		c.Close()
		database.Close(db)
	})

	env := &testEnv{
		db:     db,
		cache:  c,
		users:  repository.NewUserRepository(db),
		images: repository.NewImageRepository(db),
		labels: repository.NewLabelRepository(db),
	}
	env.activity = NewActivityRecorder(repository.NewActivityRepository(db))
	env.auth = NewAuthService(env.users, env.activity, c)
	env.image = NewImageService(env.images, env.activity, c)
	env.label = NewLabelService(env.labels, env.activity, c)
	env.stats = NewStatsService(repository.NewStatsRepository(db), c)
	return env
}

// newMockDB opens GORM over sqlmock for failure-path tests.
func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB.Close()
	})

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		Logger: logger.Discard,
	})
	require.NoError(t, err)
	return db, mock
}
