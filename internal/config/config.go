package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Slideshow SlideshowConfig
	Fetcher   FetcherConfig
	Encoder   EncoderConfig
	Worker    WorkerConfig
	Registry  RegistryConfig
	Redis     RedisConfig
	S3        S3Config
	Logger    Logger
}

type ServerConfig struct {
	AppVersion     string
	Port           string
	Mode           string
	BaseURL        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	BodyLimit      string
	AllowedOrigins []string
}

// StorageConfig holds the two directories the service owns: finished videos
// served publicly and per-job scratch files.
type StorageConfig struct {
	OutputDir string
	TempDir   string
	KeepTemp  bool
}

type SlideshowConfig struct {
	TotalDuration   time.Duration
	JPEGQuality     int
	MaxWidth        int
	MaxHeight       int
	// MaxSourcePixels bounds width*height of a source image before it is
	// decoded. Non-positive disables the check.
	MaxSourcePixels int
}

type FetcherConfig struct {
	Timeout       time.Duration
	MaxImageBytes int64
	UserAgent     string
}

type EncoderConfig struct {
	FFmpegPath   string
	VideoCodec   string
	AudioCodec   string
	AudioBitrate string
	PixelFormat  string
	Timeout      time.Duration
}

type WorkerConfig struct {
	MaxConcurrentJobs int
	ImageConcurrency  int
	MaxCPUUsage       float64
	CPUCheckInterval  time.Duration
}

type RegistryConfig struct {
	Backend   string
	KeyPrefix string
	TTL       time.Duration
}

type RedisConfig struct {
	RedisAddr     string
	RedisPassword string
	DB            int
	MinIdleConns  int
	PoolSize      int
	PoolTimeout   int
	UseTLS        bool
}

type S3Config struct {
	Enabled      bool
	Endpoint     string
	Region       string
	AccessKey    string
	SecretKey    string
	OutputBucket string
	KeyPrefix    string
}

type Logger struct {
	Development       bool
	DisableCaller     bool
	DisableStacktrace bool
	Encoding          string
	Level             string
}

const (
	RegistryMemory = "memory"
	RegistryRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.appVersion", "1.0.0")
	v.SetDefault("server.port", ":10000")
	v.SetDefault("server.mode", "development")
	v.SetDefault("server.readTimeout", 10*time.Second)
	v.SetDefault("server.writeTimeout", 0)
	v.SetDefault("server.idleTimeout", 120*time.Second)
	v.SetDefault("server.bodyLimit", "1M")

	v.SetDefault("storage.outputDir", "videos")
	v.SetDefault("storage.tempDir", "tmp")

	v.SetDefault("slideshow.totalDuration", 600*time.Second)
	v.SetDefault("slideshow.jpegQuality", 90)
	v.SetDefault("slideshow.maxWidth", 1920)
	v.SetDefault("slideshow.maxHeight", 1080)
	v.SetDefault("slideshow.maxSourcePixels", 50_000_000)

	v.SetDefault("fetcher.timeout", 60*time.Second)
	v.SetDefault("fetcher.maxImageBytes", 32<<20)
	v.SetDefault("fetcher.userAgent", "slideshow-encoder/1.0")

	v.SetDefault("encoder.ffmpegPath", "ffmpeg")
	v.SetDefault("encoder.videoCodec", "libx264")
	v.SetDefault("encoder.audioCodec", "aac")
	v.SetDefault("encoder.audioBitrate", "192k")
	v.SetDefault("encoder.pixelFormat", "yuv420p")
	v.SetDefault("encoder.timeout", 30*time.Minute)

	v.SetDefault("worker.maxConcurrentJobs", 2)
	v.SetDefault("worker.imageConcurrency", 4)
	v.SetDefault("worker.maxCPUUsage", 0)
	v.SetDefault("worker.cpuCheckInterval", 10*time.Second)

	v.SetDefault("registry.backend", RegistryMemory)
	v.SetDefault("registry.keyPrefix", "slideshow:job:")
	v.SetDefault("registry.ttl", 24*time.Hour)

	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.keyPrefix", "videos/")

	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.level", "info")
}

func LoadConfig(filename string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(filename)
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		var configFileNotFound viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, errors.New("config file not found")
		}
		return nil, err
	}
	return v, nil
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c.Storage.OutputDir == "" || c.Storage.TempDir == "" {
		return errors.New("storage.outputDir and storage.tempDir are required")
	}
	if c.Slideshow.TotalDuration <= 0 {
		return fmt.Errorf("slideshow.totalDuration must be positive, got %s", c.Slideshow.TotalDuration)
	}
	if c.Slideshow.JPEGQuality < 1 || c.Slideshow.JPEGQuality > 100 {
		return fmt.Errorf("slideshow.jpegQuality must be within 1..100, got %d", c.Slideshow.JPEGQuality)
	}
	switch c.Registry.Backend {
	case RegistryMemory, RegistryRedis:
	default:
		return fmt.Errorf("unknown registry backend: %q", c.Registry.Backend)
	}
	if c.S3.Enabled && c.S3.OutputBucket == "" {
		return errors.New("s3.outputBucket is required when s3 is enabled")
	}
	return nil
}

// EnsureDirs creates the output and temp directories. Safe to call
// concurrently and repeatedly.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Storage.OutputDir, c.Storage.TempDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}
