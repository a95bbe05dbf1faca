// Package config loads and validates the immutable process configuration for
// the job orchestration engine. Config is loaded once at process start and
// then passed by value/pointer into constructors; stage tools receive only
// the slice of Config they need.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures the inbound HTTP API (C10).
type ServerConfig struct {
	Port string
}

// DBConfig configures the Postgres-backed Job Store (C1). An empty DSN
// selects the in-memory Job Store instead.
type DBConfig struct {
	DSN             string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// BrokerConfig configures the Task Broker (C2). An empty RedisAddr selects
// the in-memory Task Broker instead.
type BrokerConfig struct {
	RedisAddr           string
	VisibilityTimeout   time.Duration
	PoisonPillThreshold int
}

// WorkerConfig configures the Worker Runtime (C4).
type WorkerConfig struct {
	Count        int
	HardDeadline time.Duration
	SoftDeadline time.Duration
}

// ReaperConfig configures the operator-driven sweep that fails Jobs left
// `pending` by a commit-but-enqueue-failure (spec.md §4.3 step 4, §7).
type ReaperConfig struct {
	Interval   time.Duration
	StaleAfter time.Duration
}

// ModelConfig configures the language model used by the Generate stage.
type ModelConfig struct {
	Provider          string
	OllamaHost        string
	GeminiAPIKey      string
	GeneratorModel    string
	OutputTokenBudget int
	Retries           int
}

// ScannerConfig configures the Scan stage.
type ScannerConfig struct {
	MaxDepth     int
	MaxFiles     int
	IgnoredNames []string
}

// AnalyzerConfig configures the Analyze stage.
type AnalyzerConfig struct {
	MaxFiles int
}

// GeneratorConfig configures prompt construction for the Generate stage.
type GeneratorConfig struct {
	ReadmeBudgetChars int
}

// GitHubConfig configures the optional GitHub App identity used to open
// pull requests when a job does not carry its own write-access credential.
type GitHubConfig struct {
	AppID          int64
	PrivateKeyPath string
}

// ArtifactStoreConfig configures the Artifact Store Gateway (C7).
type ArtifactStoreConfig struct {
	Enabled   bool
	Bucket    string
	Region    string
	BaseURL   string
	LocalPath string
}

// LogConfig configures the process logger (C9).
type LogConfig struct {
	Level  string
	Format string
	Output string
}

// Config holds the application's full, immutable configuration.
type Config struct {
	Server        ServerConfig
	DB            DBConfig
	Broker        BrokerConfig
	Worker        WorkerConfig
	Reaper        ReaperConfig
	Model         ModelConfig
	Scanner       ScannerConfig
	Analyzer      AnalyzerConfig
	Generator     GeneratorConfig
	GitHub        GitHubConfig
	ArtifactStore ArtifactStoreConfig
	Log           LogConfig
}

// defaultIgnoredNames is the closed set of directory/file names the scanner
// skips, per the union rule of spec.md's Open Questions (§9): the various
// discrepant ignore lists carried in the original source are unioned here
// into a single authoritative, configurable set.
var defaultIgnoredNames = []string{
	".git", ".hg", ".svn",
	"node_modules", "vendor", "venv", ".venv", "__pycache__",
	"dist", "build", "target", "bin", "obj",
	".idea", ".vscode", ".DS_Store",
}

// Load reads configuration from environment variables and a .env file, sets
// sensible defaults, and validates required fields, in the teacher's Viper
// idiom.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("LOG_OUTPUT", "stdout")

	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	viper.SetDefault("DB_CONN_MAX_IDLE_TIME", "10m")

	viper.SetDefault("BROKER_REDIS_ADDR", "")
	viper.SetDefault("BROKER_VISIBILITY_TIMEOUT", "60m")
	viper.SetDefault("BROKER_POISON_PILL_THRESHOLD", 3)

	viper.SetDefault("WORKERS_COUNT", 2)
	viper.SetDefault("JOB_DEADLINE_HARD", "60m")
	viper.SetDefault("JOB_DEADLINE_SOFT", "55m")

	viper.SetDefault("REAPER_INTERVAL", "5m")
	viper.SetDefault("REAPER_STALE_AFTER", "15m")

	viper.SetDefault("LLM_PROVIDER", "ollama")
	viper.SetDefault("OLLAMA_HOST", "http://localhost:11434")
	viper.SetDefault("GENERATOR_MODEL_NAME", "gemma3:latest")
	viper.SetDefault("MODEL_OUTPUT_TOKEN_BUDGET", 8000)
	viper.SetDefault("MODEL_RETRIES", 2)

	viper.SetDefault("SCANNER_MAX_DEPTH", 10)
	viper.SetDefault("SCANNER_MAX_FILES", 1000)

	viper.SetDefault("ANALYZER_MAX_FILES", 20)
	viper.SetDefault("GENERATOR_README_BUDGET_CHARS", 3000)

	viper.SetDefault("GITHUB_PRIVATE_KEY_PATH", "keys/docwarden-app.private-key.pem")

	viper.SetDefault("ARTIFACT_STORE_ENABLED", false)
	viper.SetDefault("ARTIFACT_STORE_BASE_URL", "")
	viper.SetDefault("ARTIFACT_STORE_LOCAL_PATH", "data/artifacts")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read .env config file", "error", err)
		}
	}

	hardDeadline, err := time.ParseDuration(viper.GetString("JOB_DEADLINE_HARD"))
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_DEADLINE_HARD: %w", err)
	}
	softDeadline, err := time.ParseDuration(viper.GetString("JOB_DEADLINE_SOFT"))
	if err != nil {
		return nil, fmt.Errorf("invalid JOB_DEADLINE_SOFT: %w", err)
	}
	if softDeadline > hardDeadline {
		return nil, fmt.Errorf("job.deadline.soft (%s) must not exceed job.deadline.hard (%s)", softDeadline, hardDeadline)
	}

	visTimeout, err := time.ParseDuration(viper.GetString("BROKER_VISIBILITY_TIMEOUT"))
	if err != nil {
		return nil, fmt.Errorf("invalid BROKER_VISIBILITY_TIMEOUT: %w", err)
	}

	reaperInterval, err := time.ParseDuration(viper.GetString("REAPER_INTERVAL"))
	if err != nil {
		return nil, fmt.Errorf("invalid REAPER_INTERVAL: %w", err)
	}
	reaperStaleAfter, err := time.ParseDuration(viper.GetString("REAPER_STALE_AFTER"))
	if err != nil {
		return nil, fmt.Errorf("invalid REAPER_STALE_AFTER: %w", err)
	}

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	connMaxIdleTime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_IDLE_TIME"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_IDLE_TIME: %w", err)
	}

	ignored := viper.GetStringSlice("SCANNER_IGNORED_NAMES")
	if len(ignored) == 0 {
		ignored = defaultIgnoredNames
	}

	provider := strings.ToLower(viper.GetString("LLM_PROVIDER"))
	if provider != "ollama" && provider != "gemini" {
		return nil, fmt.Errorf("unsupported LLM_PROVIDER: %s", provider)
	}
	if provider == "gemini" && viper.GetString("GEMINI_API_KEY") == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY must be set when LLM_PROVIDER=gemini")
	}

	return &Config{
		Server: ServerConfig{Port: viper.GetString("SERVER_PORT")},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
			Output: viper.GetString("LOG_OUTPUT"),
		},
		DB: DBConfig{
			DSN:             viper.GetString("DB_DSN"),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
		},
		Broker: BrokerConfig{
			RedisAddr:           viper.GetString("BROKER_REDIS_ADDR"),
			VisibilityTimeout:   visTimeout,
			PoisonPillThreshold: viper.GetInt("BROKER_POISON_PILL_THRESHOLD"),
		},
		Worker: WorkerConfig{
			Count:        viper.GetInt("WORKERS_COUNT"),
			HardDeadline: hardDeadline,
			SoftDeadline: softDeadline,
		},
		Reaper: ReaperConfig{
			Interval:   reaperInterval,
			StaleAfter: reaperStaleAfter,
		},
		Model: ModelConfig{
			Provider:          provider,
			OllamaHost:        viper.GetString("OLLAMA_HOST"),
			GeminiAPIKey:      viper.GetString("GEMINI_API_KEY"),
			GeneratorModel:    viper.GetString("GENERATOR_MODEL_NAME"),
			OutputTokenBudget: viper.GetInt("MODEL_OUTPUT_TOKEN_BUDGET"),
			Retries:           viper.GetInt("MODEL_RETRIES"),
		},
		Scanner: ScannerConfig{
			MaxDepth:     viper.GetInt("SCANNER_MAX_DEPTH"),
			MaxFiles:     viper.GetInt("SCANNER_MAX_FILES"),
			IgnoredNames: ignored,
		},
		Analyzer: AnalyzerConfig{
			MaxFiles: viper.GetInt("ANALYZER_MAX_FILES"),
		},
		Generator: GeneratorConfig{
			ReadmeBudgetChars: viper.GetInt("GENERATOR_README_BUDGET_CHARS"),
		},
		GitHub: GitHubConfig{
			AppID:          viper.GetInt64("GITHUB_APP_ID"),
			PrivateKeyPath: viper.GetString("GITHUB_PRIVATE_KEY_PATH"),
		},
		ArtifactStore: ArtifactStoreConfig{
			Enabled:   viper.GetBool("ARTIFACT_STORE_ENABLED"),
			Bucket:    viper.GetString("ARTIFACT_STORE_BUCKET"),
			Region:    viper.GetString("ARTIFACT_STORE_REGION"),
			BaseURL:   viper.GetString("ARTIFACT_STORE_BASE_URL"),
			LocalPath: viper.GetString("ARTIFACT_STORE_LOCAL_PATH"),
		},
	}, nil
}
