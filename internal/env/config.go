package env

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"weatherapp/internal/identity"
	"weatherapp/internal/storage"
	"weatherapp/internal/weather"
	"weatherapp/pkg/geo"
	"weatherapp/pkg/location"
)

const (
	CacheFile = "file"
	CacheBolt = "bolt"

	RemoteS3       = "s3"
	RemotePostgres = "postgres"
	RemoteNone     = "none"
)

type Config struct {
	CacheBackend string
	CachePath    string

	RemoteBackend string
	S3            storage.S3Config
	DatabaseURL   string

	IdentityEndpoint string
	IdentityAPIKey   string
	// IdentityPath keeps the anonymous id between runs.
	IdentityPath string

	KafkaBroker  string
	KafkaTopic   string
	KafkaGroupID string

	WeatherBaseURL   string
	NominatimBaseURL string

	// Device is nil when no device position is configured.
	Device *geo.Coordinates

	RemoteWriteAttempts int
	HTTPTimeout         time.Duration
}

// Load reads the configuration from the process environment. Call LoadEnv
// first to pick up a .env file.
func Load() (Config, error) {
	cfg := Config{
		CacheBackend:  strings.ToLower(GetEnv("FAVORITES_CACHE_BACKEND", CacheFile)),
		CachePath:     GetEnv("FAVORITES_CACHE_PATH", "favorites.json"),
		RemoteBackend: strings.ToLower(GetEnv("REMOTE_BACKEND", RemoteNone)),
		S3: storage.S3Config{
			Endpoint:  GetEnv("MINIO_ENDPOINT", "localhost:9000"),
			AccessKey: GetEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: GetEnv("MINIO_SECRET_KEY", ""),
			Bucket:    GetEnv("FAVORITES_BUCKET", "favorites"),
		},
		DatabaseURL:      GetEnv("DATABASE_URL", ""),
		IdentityEndpoint: GetEnv("IDENTITY_ENDPOINT", identity.DefaultEndpoint),
		IdentityAPIKey:   GetEnv("IDENTITY_API_KEY", ""),
		IdentityPath:     GetEnv("IDENTITY_FILE", ".favorites-identity"),
		KafkaBroker:      GetEnv("KAFKA_BROKER", "localhost:9092"),
		KafkaTopic:       GetEnv("KAFKA_TOPIC", "favorites-events"),
		KafkaGroupID:     GetEnv("KAFKA_GROUP_ID", "favorites-watch"),
		WeatherBaseURL:   GetEnv("WEATHER_BASE_URL", weather.DefaultBaseURL),
		NominatimBaseURL: GetEnv("NOMINATIM_BASE_URL", location.DefaultBaseURL),
	}

	var err error
	if cfg.S3.UseSSL, err = parseBool("MINIO_USE_SSL", false); err != nil {
		return Config{}, err
	}
	if cfg.RemoteWriteAttempts, err = parseInt("REMOTE_WRITE_ATTEMPTS", 1); err != nil {
		return Config{}, err
	}
	if cfg.RemoteWriteAttempts < 1 {
		return Config{}, fmt.Errorf("REMOTE_WRITE_ATTEMPTS must be at least 1, got %d", cfg.RemoteWriteAttempts)
	}
	if cfg.HTTPTimeout, err = time.ParseDuration(GetEnv("HTTP_TIMEOUT", "10s")); err != nil {
		return Config{}, fmt.Errorf("HTTP_TIMEOUT: %w", err)
	}
	if cfg.Device, err = parseDevice(); err != nil {
		return Config{}, err
	}

	switch cfg.CacheBackend {
	case CacheFile, CacheBolt:
	default:
		return Config{}, fmt.Errorf("unknown FAVORITES_CACHE_BACKEND %q", cfg.CacheBackend)
	}

	switch cfg.RemoteBackend {
	case RemoteNone:
	case RemoteS3:
		if cfg.S3.AccessKey == "" || cfg.S3.SecretKey == "" {
			return Config{}, fmt.Errorf("REMOTE_BACKEND=s3 requires MINIO_ACCESS_KEY and MINIO_SECRET_KEY")
		}
	case RemotePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("REMOTE_BACKEND=postgres requires DATABASE_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown REMOTE_BACKEND %q", cfg.RemoteBackend)
	}
	return cfg, nil
}

func parseBool(key string, def bool) (bool, error) {
	raw := GetEnv(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func parseInt(key string, def int) (int, error) {
	raw := GetEnv(key, "")
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func parseDevice() (*geo.Coordinates, error) {
	lat, lon := GetEnv("DEVICE_LATITUDE", ""), GetEnv("DEVICE_LONGITUDE", "")
	if lat == "" && lon == "" {
		return nil, nil
	}
	if lat == "" || lon == "" {
		return nil, fmt.Errorf("DEVICE_LATITUDE and DEVICE_LONGITUDE must be set together")
	}

	var c geo.Coordinates
	var err error
	if c.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return nil, fmt.Errorf("DEVICE_LATITUDE: %w", err)
	}
	if c.Lon, err = strconv.ParseFloat(lon, 64); err != nil {
		return nil, fmt.Errorf("DEVICE_LONGITUDE: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
