package types

import (
	"os"
	"strconv"
	"time"
)

// Config collects every recognized environment option in one place. Values are
// read once at startup; the zero-value fallbacks match the defaults of the
// original service.
type Config struct {
	ServerAddr string

	// Document store
	StoreBackend string // "file" or "postgres"
	DataDir      string

	// Postgres (used when StoreBackend == "postgres")
	PGHost   string
	PGPort   int
	PGUser   string
	PGPass   string
	PGDBName string

	// Answering tiers
	UseFileSearch  bool
	OpenAIKey      string
	OpenAIBaseURL  string
	OpenAIModel    string
	PageCharBudget int
	TopK           int
	TierTimeout    time.Duration

	// Loader daemon
	LoaderSourceDir  string
	LoaderArchiveDir string
	LoaderBadDir     string
}

func ConfigFromEnv() Config {
	pgPort, _ := strconv.Atoi(os.Getenv("PG_PORT"))

	return Config{
		ServerAddr: envOr("SERVER_ADDR", ":8080"),

		StoreBackend: envOr("STORE_BACKEND", "file"),
		DataDir:      envOr("DATA_DIR", "uploads"),

		PGHost:   os.Getenv("PG_HOST"),
		PGPort:   pgPort,
		PGUser:   os.Getenv("PG_USER"),
		PGPass:   os.Getenv("PG_PASS"),
		PGDBName: os.Getenv("PG_DB_NAME"),

		UseFileSearch:  os.Getenv("USE_FILE_SEARCH") == "1",
		OpenAIKey:      os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:  envOr("OPENAI_BASE_URL", "https://api.openai.com/v1"),
		OpenAIModel:    envOr("OPENAI_MODEL", "gpt-4o-mini"),
		PageCharBudget: envIntOr("PAGE_CHAR_BUDGET", 4000),
		TopK:           envIntOr("TOP_K", 3),
		TierTimeout:    time.Duration(envIntOr("TIER_TIMEOUT_SEC", 60)) * time.Second,

		LoaderSourceDir:  envOr("LOADER_SOURCE_DIR", "inbox"),
		LoaderArchiveDir: envOr("LOADER_ARCHIVE_DIR", "archive"),
		LoaderBadDir:     envOr("LOADER_BAD_DIR", "bad"),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil || v <= 0 {
		return fallback
	}
	return v
}
