package common

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Storage   StorageConfig
	Vector    VectorConfig
	Server    ServerConfig
	OCR       OCRConfig
	LLM       LLMConfig
	Recommend RecommendConfig
	Session   SessionConfig
	Scrape    ScrapeConfig
	Proposal  ProposalConfig
	Log       LogConfig
}

// StorageConfig holds upload and output locations
type StorageConfig struct {
	FileSavePath string
	OutputPath   string
}

// VectorConfig holds vector-store configuration
type VectorConfig struct {
	Backend         string // "sqlite" | "pgvector"
	Dir             string
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
	TopK            int
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	HTTPAddr       string
	GRPCHealthAddr string
	GinMode        string
}

// OCRConfig holds page rasterization configuration
type OCRConfig struct {
	Pdftoppm string
	DPI      int
	MaxPages int
}

// LLMConfig holds LLM-related configuration
type LLMConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	VisionModel    string
	EmbeddingModel string
	Temperature    float32
	Timeout        time.Duration
	RPM            int
}

// RecommendConfig bounds the recommendation fan-out
type RecommendConfig struct {
	TaskTimeout time.Duration
	Concurrency int
}

// SessionConfig holds form-state store configuration
type SessionConfig struct {
	RedisURL string
	TTL      time.Duration
}

// ScrapeConfig holds web research configuration
type ScrapeConfig struct {
	Timeout   time.Duration
	SearchURL string
	MaxPages  int
}

// ProposalConfig holds rendering configuration
type ProposalConfig struct {
	Theme       string
	ChromePDF   bool
	Wkhtmltopdf string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// LoadEnvFile loads a dotenv file into the process environment. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return WrapError(err, "load env file")
	}
	return nil
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			FileSavePath: getEnv("FILE_SAVE_PATH", "./uploads"),
			OutputPath:   getEnv("OUTPUT_PATH", getEnv("OUTPUT_FILE_PATH", "./output")),
		},
		Vector: VectorConfig{
			Backend:         strings.ToLower(getEnv("VECTOR_BACKEND", "sqlite")),
			Dir:             getEnv("VECTOR_STORE_DIR", "chroma_store"),
			DSN:             getEnv("VECTOR_DB_URL", ""),
			MaxConns:        getEnvAsInt32("VECTOR_DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt32("VECTOR_DB_MIN_CONNS", 1),
			MaxConnLifetime: getEnvAsDuration("VECTOR_DB_MAX_CONN_LIFETIME", 30*time.Minute),
			DialTimeout:     getEnvAsDuration("VECTOR_DB_DIAL_TIMEOUT", 3*time.Second),
			TopK:            getEnvAsInt("RETRIEVER_TOP_K", 4),
		},
		Server: ServerConfig{
			HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
			GRPCHealthAddr: getEnv("GRPC_HEALTH_ADDR", ":8081"),
			GinMode:        getEnv("GIN_MODE", "release"),
		},
		OCR: OCRConfig{
			Pdftoppm: getEnv("PDFTOPPM", "pdftoppm"),
			DPI:      getEnvAsInt("PDF_RASTER_DPI", 150),
			MaxPages: getEnvAsInt("PDF_MAX_CAPTION_PAGES", 20),
		},
		LLM: LLMConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			VisionModel:    getEnv("OPENAI_VISION_MODEL", "gpt-4o"),
			EmbeddingModel: getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			Temperature:    getEnvAsFloat32("OPENAI_TEMPERATURE", 0.2),
			Timeout:        getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			RPM:            getEnvAsInt("OPENAI_RPM", 300),
		},
		Recommend: RecommendConfig{
			TaskTimeout: getEnvAsDuration("RECOMMEND_TIMEOUT", 30*time.Second),
			Concurrency: getEnvAsInt("RECOMMEND_CONCURRENCY", 5),
		},
		Session: SessionConfig{
			RedisURL: getEnv("REDIS_URL", ""),
			TTL:      getEnvAsDuration("SESSION_TTL", 12*time.Hour),
		},
		Scrape: ScrapeConfig{
			Timeout:   getEnvAsDuration("SCRAPE_TIMEOUT", 20*time.Second),
			SearchURL: getEnv("SEARCH_URL", "https://html.duckduckgo.com/html/"),
			MaxPages:  getEnvAsInt("SCRAPE_MAX_PAGES", 8),
		},
		Proposal: ProposalConfig{
			Theme:       getEnv("PROPOSAL_THEME", "corporate"),
			ChromePDF:   getEnvAsBool("CHROME_PDF", true),
			Wkhtmltopdf: getEnv("WKHTMLTOPDF", "wkhtmltopdf"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Storage.FileSavePath == "" {
		return NewAppError("CONFIG_ERROR", "FILE_SAVE_PATH is required", ErrInvalidInput)
	}
	switch c.Vector.Backend {
	case "sqlite":
		if c.Vector.Dir == "" {
			return NewAppError("CONFIG_ERROR", "VECTOR_STORE_DIR is required for the sqlite backend", ErrInvalidInput)
		}
	case "pgvector":
		if c.Vector.DSN == "" {
			return NewAppError("CONFIG_ERROR", "VECTOR_DB_URL is required for the pgvector backend", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "VECTOR_BACKEND must be sqlite or pgvector", ErrInvalidInput)
	}
	return nil
}
