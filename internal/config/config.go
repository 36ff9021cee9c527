package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env
// var with _FILE suffix. If FOO is already set directly, the file is
// skipped. If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Whisper   WhisperConfig
	Fetcher   FetcherConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Upload    UploadConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig selects the request authentication mode: "none", "apikey"
// (X-API-Key header compared to APIKey), or "jwt" (HS256 bearer token).
type AuthConfig struct {
	Mode      string
	APIKey    string
	JWTSecret string
}

// WhisperConfig points at the faster-whisper transcription service.
type WhisperConfig struct {
	ServiceURL   string
	APIKey       string
	Timeout      int // seconds
	DefaultModel string
}

type FetcherConfig struct {
	BinPath string // yt-dlp binary
	WorkDir string // parent for per-job temp dirs; empty = os.TempDir
}

// StorageConfig selects the transcript artifact backend: "file" or "s3".
type StorageConfig struct {
	Backend       string
	TranscriptDir string
	S3            S3Config
}

type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	KeyPrefix       string
}

type WorkerConfig struct {
	Concurrency int
}

type UploadConfig struct {
	MaxFileSizeMB int
}

type RateLimitConfig struct {
	AudioPerHour  int
	SubmitPerHour int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("AUTH_API_KEY")
	readSecret("AUTH_JWT_SECRET")
	readSecret("WHISPER_API_KEY")
	readSecret("S3_ACCESS_KEY_ID")
	readSecret("S3_SECRET_ACCESS_KEY")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("auth.mode", "AUTH_MODE")
	_ = viper.BindEnv("auth.api_key", "AUTH_API_KEY")
	_ = viper.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	_ = viper.BindEnv("whisper.service_url", "WHISPER_SERVICE_URL")
	_ = viper.BindEnv("whisper.api_key", "WHISPER_API_KEY")
	_ = viper.BindEnv("whisper.timeout", "WHISPER_TIMEOUT")
	_ = viper.BindEnv("whisper.default_model", "WHISPER_DEFAULT_MODEL")
	_ = viper.BindEnv("fetcher.bin_path", "YTDLP_PATH")
	_ = viper.BindEnv("fetcher.work_dir", "FETCHER_WORK_DIR")
	_ = viper.BindEnv("storage.backend", "STORAGE_BACKEND")
	_ = viper.BindEnv("storage.transcript_dir", "TRANSCRIPT_DIR")
	_ = viper.BindEnv("storage.s3.endpoint", "S3_ENDPOINT")
	_ = viper.BindEnv("storage.s3.region", "S3_REGION")
	_ = viper.BindEnv("storage.s3.access_key_id", "S3_ACCESS_KEY_ID")
	_ = viper.BindEnv("storage.s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("storage.s3.bucket_name", "S3_BUCKET_NAME")
	_ = viper.BindEnv("storage.s3.key_prefix", "S3_KEY_PREFIX")
	_ = viper.BindEnv("worker.concurrency", "WORKER_CONCURRENCY")
	_ = viper.BindEnv("upload.max_file_size_mb", "UPLOAD_MAX_FILE_SIZE_MB")
	_ = viper.BindEnv("ratelimit.audio_per_hour", "RATELIMIT_AUDIO_PER_HOUR")
	_ = viper.BindEnv("ratelimit.submit_per_hour", "RATELIMIT_SUBMIT_PER_HOUR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("auth.mode", "apikey")
	viper.SetDefault("auth.api_key", "")
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("whisper.service_url", "http://localhost:9000")
	viper.SetDefault("whisper.timeout", 300)
	viper.SetDefault("whisper.default_model", "base")
	viper.SetDefault("fetcher.bin_path", "yt-dlp")
	viper.SetDefault("fetcher.work_dir", "")
	viper.SetDefault("storage.backend", "file")
	viper.SetDefault("storage.transcript_dir", "transcriptions")
	viper.SetDefault("storage.s3.region", "auto")
	viper.SetDefault("worker.concurrency", 4)
	viper.SetDefault("upload.max_file_size_mb", 100)
	viper.SetDefault("ratelimit.audio_per_hour", 60)
	viper.SetDefault("ratelimit.submit_per_hour", 20)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		Auth: AuthConfig{
			Mode:      viper.GetString("auth.mode"),
			APIKey:    viper.GetString("auth.api_key"),
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		Whisper: WhisperConfig{
			ServiceURL:   viper.GetString("whisper.service_url"),
			APIKey:       viper.GetString("whisper.api_key"),
			Timeout:      viper.GetInt("whisper.timeout"),
			DefaultModel: viper.GetString("whisper.default_model"),
		},
		Fetcher: FetcherConfig{
			BinPath: viper.GetString("fetcher.bin_path"),
			WorkDir: viper.GetString("fetcher.work_dir"),
		},
		Storage: StorageConfig{
			Backend:       viper.GetString("storage.backend"),
			TranscriptDir: viper.GetString("storage.transcript_dir"),
			S3: S3Config{
				Endpoint:        viper.GetString("storage.s3.endpoint"),
				Region:          viper.GetString("storage.s3.region"),
				AccessKeyID:     viper.GetString("storage.s3.access_key_id"),
				SecretAccessKey: viper.GetString("storage.s3.secret_access_key"),
				BucketName:      viper.GetString("storage.s3.bucket_name"),
				KeyPrefix:       viper.GetString("storage.s3.key_prefix"),
			},
		},
		Worker: WorkerConfig{
			Concurrency: viper.GetInt("worker.concurrency"),
		},
		Upload: UploadConfig{
			MaxFileSizeMB: viper.GetInt("upload.max_file_size_mb"),
		},
		RateLimit: RateLimitConfig{
			AudioPerHour:  viper.GetInt("ratelimit.audio_per_hour"),
			SubmitPerHour: viper.GetInt("ratelimit.submit_per_hour"),
		},
	}

	return cfg, nil
}
