package main

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/Nixie-Tech-LLC/irrigo/internal/scheduler"
)

type Environment struct {
	Environment    string
	ServerAddress  string
	LogLevel       string
	DeviceURL      string
	DeviceWSURL    string
	DeviceTimeout  time.Duration
	MarkerInterval time.Duration
	SessionIdle    time.Duration
	ReloadTimeout  time.Duration

	DraftBackend   string
	DraftPath      string
	DatabaseURL    string
	MigrationsPath string
	RedisAddress   string
	RedisUsername  string
	RedisPassword  string

	MQTTBroker      string
	MQTTTopicPrefix string
	DeviceID        string

	Archive         string
	ArchivePath     string
	SpacesEndpoint  string
	SpacesRegion    string
	SpacesBucket    string
	SpacesCDNURL    string
	SpacesAccessKey string
	SpacesSecretKey string
}

func (e Environment) Development() bool { return e.Environment == "development" }

// LoadEnvironment reads and validates env vars. A .env file in the working
// directory is loaded first when present; real environment variables win.
func LoadEnvironment() Environment {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("could not read .env")
	}

	env := Environment{
		Environment:    os.Getenv("APP_ENV"),
		ServerAddress:  getenv("SERVER_ADDRESS", ":8080"),
		LogLevel:       getenv("LOG_LEVEL", "info"),
		DeviceURL:      strings.TrimRight(os.Getenv("DEVICE_URL"), "/"),
		DeviceWSURL:    os.Getenv("DEVICE_WS_URL"),
		DeviceTimeout:  duration("DEVICE_TIMEOUT", 10*time.Second),
		MarkerInterval: duration("MARKER_INTERVAL", scheduler.DefaultMarkerInterval),
		SessionIdle:    duration("SESSION_IDLE_TIMEOUT", 30*time.Minute),
		ReloadTimeout:  duration("RELOAD_TIMEOUT", scheduler.DefaultReloadTimeout),

		DraftBackend:   getenv("DRAFT_BACKEND", "disk"),
		DraftPath:      getenv("DRAFT_PATH", "./drafts"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getenv("MIGRATIONS_PATH", "./migrations"),
		RedisAddress:   os.Getenv("REDIS_ADDRESS"),
		RedisUsername:  os.Getenv("REDIS_USERNAME"),
		RedisPassword:  os.Getenv("REDIS_PASSWORD"),

		MQTTBroker:      os.Getenv("MQTT_BROKER"),
		MQTTTopicPrefix: getenv("MQTT_TOPIC_PREFIX", "irrigo"),
		DeviceID:        getenv("DEVICE_ID", "es32a08"),

		Archive:         getenv("ARCHIVE", "none"),
		ArchivePath:     getenv("ARCHIVE_PATH", "./archive"),
		SpacesEndpoint:  os.Getenv("SPACES_ENDPOINT"),
		SpacesRegion:    os.Getenv("SPACES_REGION"),
		SpacesBucket:    os.Getenv("SPACES_BUCKET"),
		SpacesCDNURL:    os.Getenv("SPACES_CDN_URL"),
		SpacesAccessKey: os.Getenv("SPACES_ACCESS_KEY"),
		SpacesSecretKey: os.Getenv("SPACES_SECRET_KEY"),
	}

	if env.DeviceURL == "" {
		log.Fatal().Msg("DEVICE_URL is required")
	}
	switch env.DeviceWSURL {
	case "":
		env.DeviceWSURL = deviceWSURL(env.DeviceURL)
	case "off":
		env.DeviceWSURL = ""
	}
	if env.MarkerInterval <= 0 || env.MarkerInterval > scheduler.MaxMarkerInterval {
		log.Fatal().Dur("interval", env.MarkerInterval).Msg("MARKER_INTERVAL must be in (0, 60s]")
	}
	if env.SessionIdle < time.Minute {
		log.Fatal().Dur("idle", env.SessionIdle).Msg("SESSION_IDLE_TIMEOUT must be at least 1m")
	}
	switch env.DraftBackend {
	case "disk", "memory", "redis", "postgres":
	default:
		log.Fatal().Str("backend", env.DraftBackend).Msg("DRAFT_BACKEND must be disk, memory, redis or postgres")
	}
	if env.DraftBackend == "redis" && env.RedisAddress == "" {
		log.Fatal().Msg("REDIS_ADDRESS is required for the redis draft backend")
	}
	if env.DraftBackend == "postgres" && env.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL is required for the postgres draft backend")
	}

	return env
}

// deviceWSURL derives ws://host/ws/scheduler from the REST base URL.
func deviceWSURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws/scheduler"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws/scheduler"
	}
	return ""
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Fatal().Err(err).Str("key", key).Msg("invalid duration")
	}
	return d
}
