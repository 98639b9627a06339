package cfg

import "time"

type Cfg struct {
	// HTTP server
	Port         string
	APIAccessKey string

	// Article store
	StoreURL         string
	StoreArticlePath string
	StoreIndexPath   string
	StoreTimeout     time.Duration

	// LLM provider
	GeminiAPIKey string
	GeminiModel  string
	LLMTimeout   time.Duration

	// Search provider
	SearchAPIKey    string
	SearchURL       string
	SearchTimeout   time.Duration
	ResearchProfile string

	// Persistence and leases
	DBPath        string
	RedisAddr     string
	RedisPassword string
	LeaseTTL      time.Duration

	// Background processing
	WorkerCount       int
	SchedulerInterval int
	RunRetention      int

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
