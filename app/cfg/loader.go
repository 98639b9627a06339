package cfg

import (
	"cmp"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	// Article store
	StoreURL         string        `long:"store-url" env:"STORE_URL" default:"http://localhost:8000" description:"Base URL of the article store"`
	StoreArticlePath string        `long:"store-article-path" env:"STORE_ARTICLE_PATH" default:"/api/article" description:"Path of the per-slug article endpoint"`
	StoreIndexPath   string        `long:"store-index-path" env:"STORE_INDEX_PATH" default:"/api/all" description:"Path of the article list endpoint"`
	StoreTimeout     time.Duration `long:"store-timeout" env:"STORE_TIMEOUT" default:"15s" description:"Timeout for article store requests"`

	// LLM provider
	GeminiAPIKey string        `long:"gemini-api-key" env:"GEMINI_API_KEY" description:"Gemini API key (required)" required:"true"`
	GeminiModel  string        `long:"gemini-model" env:"GEMINI_MODEL" default:"gemini-2.5-flash" description:"Gemini model name"`
	LLMTimeout   time.Duration `long:"llm-timeout" env:"LLM_TIMEOUT" default:"120s" description:"Timeout for a single LLM call"`

	// Search provider
	SearchAPIKey    string        `long:"search-api-key" env:"SEARCH_API_KEY" description:"SerpAPI key (required)" required:"true"`
	SearchURL       string        `long:"search-url" env:"SEARCH_URL" default:"https://serpapi.com/search.json" description:"SerpAPI endpoint"`
	SearchTimeout   time.Duration `long:"search-timeout" env:"SEARCH_TIMEOUT" default:"30s" description:"Timeout for search requests"`
	ResearchProfile string        `long:"research-profile" env:"RESEARCH_PROFILE" description:"YAML file tuning competitor research (optional)"`

	// Persistence and leases
	DBPath        string        `long:"db-path" env:"DB_PATH" default:"./data/optimizer.db" description:"SQLite database file"`
	RedisAddr     string        `long:"redis-addr" env:"REDIS_ADDR" description:"Redis address for shared slug leases (optional)"`
	RedisPassword string        `long:"redis-password" env:"REDIS_PASSWORD" description:"Redis password"`
	LeaseTTL      time.Duration `long:"lease-ttl" env:"LEASE_TTL" default:"15m" description:"How long a pipeline run holds its slug lease"`

	// Background processing
	WorkerCount       int `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for pipeline jobs"`
	SchedulerInterval int `long:"scheduler-interval" env:"SCHEDULER_INTERVAL" default:"3600" description:"Maintenance interval in seconds"`
	RunRetention      int `long:"run-retention" env:"RUN_RETENTION" default:"30" description:"Days to keep the run journal"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load reads an optional .env file and then parses the command line.
// It returns nil without error when help was requested.
func Load() (*Cfg, error) {
	_ = godotenv.Load()
	return Parse(os.Args[1:])
}

func Parse(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:              raw.Port,
		APIAccessKey:      raw.APIAccessKey,
		StoreURL:          strings.TrimRight(raw.StoreURL, "/"),
		StoreArticlePath:  raw.StoreArticlePath,
		StoreIndexPath:    raw.StoreIndexPath,
		StoreTimeout:      raw.StoreTimeout,
		GeminiAPIKey:      raw.GeminiAPIKey,
		GeminiModel:       raw.GeminiModel,
		LLMTimeout:        raw.LLMTimeout,
		SearchAPIKey:      raw.SearchAPIKey,
		SearchURL:         raw.SearchURL,
		SearchTimeout:     raw.SearchTimeout,
		ResearchProfile:   raw.ResearchProfile,
		DBPath:            raw.DBPath,
		RedisAddr:         raw.RedisAddr,
		RedisPassword:     raw.RedisPassword,
		LeaseTTL:          raw.LeaseTTL,
		WorkerCount:       raw.WorkerCount,
		SchedulerInterval: raw.SchedulerInterval,
		RunRetention:      raw.RunRetention,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	return cfg, nil
}

func validate(cfg *Cfg) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}
	if cfg.SchedulerInterval < 1 {
		return fmt.Errorf("scheduler interval must be at least 1 second, got %d", cfg.SchedulerInterval)
	}
	if cfg.LeaseTTL <= 0 {
		return fmt.Errorf("lease TTL must be positive, got %s", cfg.LeaseTTL)
	}
	if !strings.HasPrefix(cfg.StoreURL, "http://") && !strings.HasPrefix(cfg.StoreURL, "https://") {
		return fmt.Errorf("store URL must be http or https, got %q", cfg.StoreURL)
	}
	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
