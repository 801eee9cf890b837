package config

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/hazama-dev/mediaforge/internal/derive"
	"github.com/hazama-dev/mediaforge/internal/domain/model"
)

type Config struct {
	Server    ServerConfig
	Worker    WorkerConfig
	Database  DatabaseConfig
	MinIO     MinIOConfig
	RabbitMQ  RabbitMQConfig
	Redis     RedisConfig
	Tools     ToolsConfig
	Thumbnail ThumbnailConfig
	Transcode TranscodeConfig
	Storage   StorageConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"30s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type WorkerConfig struct {
	TempDir         string        `envconfig:"WORKER_TEMP_DIR" default:"/tmp/mediaforge"`
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	MetricsPort     int           `envconfig:"WORKER_METRICS_PORT" default:"9091"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"mediaforge"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"mediaforge"`
	DBName   string `envconfig:"POSTGRES_DB" default:"mediaforge"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type MinIOConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT" default:"localhost:9000"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY" default:"minioadmin"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY" default:"minioadmin"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"derivatives"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"mediaforge"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"mediaforge"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ToolsConfig locates the external binaries and bounds their runtime.
type ToolsConfig struct {
	FFmpegPath   string        `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	FFprobePath  string        `envconfig:"FFPROBE_PATH" default:"ffprobe"`
	ProbeTimeout time.Duration `envconfig:"PROBE_TIMEOUT" default:"30s"`
	RunTimeout   time.Duration `envconfig:"TOOL_RUN_TIMEOUT" default:"120s"`
}

// ThumbnailConfig controls the thumbnail pipeline.
type ThumbnailConfig struct {
	Enabled bool `envconfig:"THUMBNAILS_ENABLED" default:"true"`

	// DefaultPositionPercentage is where in the timeline to capture
	// when a request does not override it.
	DefaultPositionPercentage int `envconfig:"THUMBNAIL_POSITION_PERCENTAGE" default:"25"`

	// Sizes overrides the default size set; JSON array of
	// {name, constraint_pixels, strategy}.
	Sizes string `envconfig:"THUMBNAIL_SIZES" default:""`

	// FanoutParallelism caps concurrent resizes (1 = sequential).
	FanoutParallelism int `envconfig:"THUMBNAIL_FANOUT_PARALLELISM" default:"1"`
}

// sizeJSON is the JSON form of one thumbnail size.
type sizeJSON struct {
	Name             string `json:"name"`
	ConstraintPixels int    `json:"constraint_pixels"`
	Strategy         string `json:"strategy"`
}

// SizeSpecs parses the configured size set, falling back to the stock
// set when none is configured.
func (c ThumbnailConfig) SizeSpecs() ([]model.ThumbnailSizeSpec, error) {
	if c.Sizes == "" {
		return model.DefaultThumbnailSizes(), nil
	}

	var raw []sizeJSON
	if err := json.Unmarshal([]byte(c.Sizes), &raw); err != nil {
		return nil, fmt.Errorf("parse THUMBNAIL_SIZES: %w", err)
	}

	specs := make([]model.ThumbnailSizeSpec, 0, len(raw))
	for _, s := range raw {
		spec := model.ThumbnailSizeSpec{
			Name:             s.Name,
			ConstraintPixels: s.ConstraintPixels,
			Strategy:         model.ResizeStrategy(s.Strategy),
		}
		if spec.Name == "" || spec.ConstraintPixels <= 0 || !spec.Strategy.IsValid() {
			return nil, fmt.Errorf("invalid thumbnail size %+v", s)
		}
		specs = append(specs, spec)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("THUMBNAIL_SIZES must not be empty")
	}
	return specs, nil
}

// TranscodeConfig controls the transcode pipeline.
type TranscodeConfig struct {
	Enabled bool `envconfig:"TRANSCODES_ENABLED" default:"true"`

	// Profiles extends or overrides the stock converter profiles; JSON
	// array of derive.Profile.
	Profiles string `envconfig:"TRANSCODE_PROFILES" default:""`

	// MaxLiveBytes is the source-size threshold below which the API
	// runs a conversion synchronously instead of queueing it.
	MaxLiveBytes int64 `envconfig:"TRANSCODE_MAX_LIVE_BYTES" default:"10485760"`
}

// ProfileTable builds the effective converter profile table: stock
// audio, video and PDF profiles, overridden or extended by
// configuration.
func (c TranscodeConfig) ProfileTable() (derive.ProfileTable, error) {
	var extra []derive.Profile
	if c.Profiles != "" {
		if err := json.Unmarshal([]byte(c.Profiles), &extra); err != nil {
			return nil, fmt.Errorf("parse TRANSCODE_PROFILES: %w", err)
		}
		for _, p := range extra {
			if p.Key == "" || p.Folder == "" || p.Extension == "" || len(p.Args) == 0 {
				return nil, fmt.Errorf("invalid transcode profile %+v", p)
			}
		}
	}
	return derive.NewProfileTable(
		derive.DefaultAudioProfiles(),
		derive.DefaultVideoProfiles(),
		derive.DefaultPDFProfiles(),
		extra,
	), nil
}

// StorageConfig selects and roots the artifact store.
type StorageConfig struct {
	// Backend is "local" or "minio".
	Backend string `envconfig:"STORAGE_BACKEND" default:"local"`

	// BasePath roots the local derivative tree and the original-file
	// lookup convention.
	BasePath string `envconfig:"STORAGE_BASE_PATH" default:"/var/lib/mediaforge/files"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
