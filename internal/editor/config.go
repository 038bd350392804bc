package editor

import "time"

const (
	DefaultPort          = ":3000"
	DefaultMaxUploadSize = "25M"
	DefaultActivityLimit = 20
)

type Config struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// MaxUploadSize is an echo BodyLimit size such as 4M or 25M
	MaxUploadSize string

	// RequireSubscription gates the editor behind an active subscription
	RequireSubscription bool

	// EditTimeout bounds a single edit, 0 means no limit besides the request context
	EditTimeout time.Duration
}

func (cfg Config) withDefaults() Config {
	if cfg.Port == "" {
		cfg.Port = DefaultPort
	}

	if cfg.MaxUploadSize == "" {
		cfg.MaxUploadSize = DefaultMaxUploadSize
	}

	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = 30 * time.Second
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 60 * time.Second
	}

	return cfg
}
