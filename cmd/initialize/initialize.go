package initialize

import (
	"context"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"code.cloudfoundry.org/bytefmt"
	"github.com/denismitr/goenv"
	"github.com/denismitr/heroic/internal/activity"
	"github.com/denismitr/heroic/internal/activity/mgoactivity"
	"github.com/denismitr/heroic/internal/editor"
	"github.com/denismitr/heroic/internal/media/manipulator"
	"github.com/denismitr/heroic/internal/storage/s3storage"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func S3StorageFromEnv() *s3storage.RemoteStorage {
	cfg := s3storage.Config{
		AccessKey:        goenv.MustString("S3_ACCESS_KEY_ID"),
		AccessSecret:     goenv.MustString("S3_SECRET_ACCESS_KEY"),
		AccessToken:      "",
		Region:           goenv.MustString("S3_REGION"),
		Endpoint:         goenv.MustString("S3_ENDPOINT"),
		S3ForcePathStyle: goenv.IsTruthy("S3_FORCE_PATH_STYLE"),
		EnableSSL:        goenv.IsTruthy("S3_SSL"),
	}

	rs, err := s3storage.New(cfg)
	if err != nil {
		panic(err)
	}

	return rs
}

// ActivityStore picks the store named by ACTIVITY_STORE, memory unless it says mongo
func ActivityStore(connectionTimeout time.Duration, migrate bool) (activity.Store, func()) {
	if !strings.EqualFold(envOrDefault("ACTIVITY_STORE", "memory"), "mongo") {
		return activity.NewMemoryStore(), func() {}
	}

	return MongoActivityStore(connectionTimeout, migrate)
}

func MongoActivityStore(connectionTimeout time.Duration, migrate bool) (*mgoactivity.MongoActivityStore, func()) {
	ctx, cancel := context.WithTimeout(context.Background(), connectionTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(goenv.MustString("MONGODB_URL")))
	if err != nil {
		panic(err)
	}

	store := mgoactivity.New(client, mgoactivity.Config{
		DB:                 goenv.MustString("MONGODB_DATABASE"),
		ActivityCollection: "activity",
	})

	if migrate {
		if err := store.Migrate(ctx); err != nil {
			panic(err)
		}
	}

	return store, func() {
		if err := client.Disconnect(context.Background()); err != nil {
			panic(err)
		}
	}
}

// DotEnv loads the given env files, a missing file is not an error
func DotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}

	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}

			panic(errors.Wrapf(err, "error loading %s file", f))
		}
	}
}

func Logger() *logrus.Logger {
	log := logrus.New()
	log.Out = os.Stderr
	log.Formatter = &logrus.TextFormatter{
		TimestampFormat: time.StampMilli,
		FullTimestamp:   true,
	}

	if level, err := logrus.ParseLevel(envOrDefault("LOG_LEVEL", "info")); err == nil {
		log.SetLevel(level)
	}

	return log
}

func EditorConfig() editor.Config {
	maxUpload := envOrDefault("EDITOR_MAX_UPLOAD", editor.DefaultMaxUploadSize)
	if _, err := bytefmt.ToBytes(maxUpload); err != nil {
		panic(errors.Wrapf(err, "EDITOR_MAX_UPLOAD %q", maxUpload))
	}

	return editor.Config{
		Port:                envOrDefault("EDITOR_PORT", editor.DefaultPort),
		MaxUploadSize:       maxUpload,
		RequireSubscription: goenv.IsTruthy("EDITOR_REQUIRE_SUBSCRIPTION"),
		EditTimeout:         time.Duration(intOrDefault("EDITOR_EDIT_TIMEOUT_SECONDS", 0)) * time.Second,
	}
}

func ManipulatorConfig() *manipulator.Config {
	return &manipulator.Config{
		MaxDimension: intOrDefault("EDITOR_MAX_DIMENSION", manipulator.DefaultMaxDimension),
		MaxPixels:    intOrDefault("EDITOR_MAX_PIXELS", manipulator.DefaultMaxPixels),
	}
}

func Entitlements() *editor.StaticEntitlements {
	return editor.NewStaticEntitlements(editor.ParseSubscribers(os.Getenv("EDITOR_SUBSCRIBERS"))...)
}

func envOrDefault(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}

	return def
}

func intOrDefault(key string, def int) int {
	raw := envOrDefault(key, "")
	if raw == "" {
		return def
	}

	v, err := strconv.Atoi(raw)
	if err != nil {
		panic(errors.Wrapf(err, "%s must be an integer", key))
	}

	return v
}
