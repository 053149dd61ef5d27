package models

import "time"

// Config represents the service configuration, loaded from YAML with
// environment-variable overrides applied in cmd/server.
type Config struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	OCR      OCRConfig      `yaml:"ocr"`
	Auth     AuthConfig     `yaml:"auth"`
	Queue    QueueConfig    `yaml:"queue"`

	Heuristics Heuristics `yaml:"heuristics"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// StorageConfig holds MinIO blob store settings.
type StorageConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// OCRConfig represents recognition-engine and pipeline settings.
type OCRConfig struct {
	Language string `yaml:"language"` // tesseract language, default "eng"

	// FastMode trades recall for latency: fewer image variants and
	// fewer layout configurations per variant.
	FastMode bool `yaml:"fast_mode"`

	AutoCrop    bool `yaml:"auto_crop"`
	Perspective bool `yaml:"perspective"`
	Deskew      bool `yaml:"deskew"`

	EngineTimeout time.Duration `yaml:"engine_timeout"`

	MaxPDFPages int     `yaml:"max_pdf_pages"`
	PDFScale    float64 `yaml:"pdf_scale"`
}

// AuthConfig holds JWT settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

// QueueConfig holds ingestion worker settings.
type QueueConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DefaultConfig returns a configuration with production defaults; loaded
// YAML overlays it.
func DefaultConfig() Config {
	return Config{
		Host: "0.0.0.0",
		Port: 8080,
		OCR: OCRConfig{
			Language:      "eng",
			FastMode:      true,
			AutoCrop:      true,
			Perspective:   true,
			Deskew:        false,
			EngineTimeout: 10 * time.Second,
			MaxPDFPages:   4,
			PDFScale:      2.4,
		},
		Auth: AuthConfig{
			TokenTTL: 24 * time.Hour,
		},
		Queue: QueueConfig{
			PollInterval:    500 * time.Millisecond,
			ShutdownTimeout: 5 * time.Second,
		},
		Heuristics: DefaultHeuristics(),
	}
}
