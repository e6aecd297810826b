package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             int
	DatabaseURL      string
	AgentDatabaseURL string
	OpenAIAPIKey     string
	OpenAIModel      string
	OpenAIBaseURL    string
	CORSOrigins      []string
	ActionTTL        time.Duration
	ActionStorePath  string
	SQLLogFile       string
	LLMRateLimit     float64
}

const (
	DefaultPort        = 8000
	DefaultOpenAIModel = "gpt-4o-mini"
	DefaultCORSOrigin  = "http://localhost:5173"
	DefaultActionTTL   = 5 * time.Minute
	DefaultLLMRate     = 1.0
)

// LoadDotEnv loads KEY=VALUE pairs from path into the environment.
// Variables already set win, and a missing file is not an error.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// ParseFlags validates flags and falls back to environment variables
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var cors, ttl, rate string

	fset := flag.NewFlagSet("chantier", flag.ContinueOnError)

	fset.IntVar(&cfg.Port, "p", 0, "Server port")
	fset.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	fset.StringVar(&cfg.AgentDatabaseURL, "agent-d", "", "Database URL for agent reads (defaults to -d)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fset.StringVar(&cfg.OpenAIAPIKey, "openai-key", "", "OpenAI API key (prefer env)")
	fset.StringVar(&cfg.OpenAIModel, "model", "", "OpenAI chat model")
	fset.StringVar(&cfg.OpenAIBaseURL, "openai-url", "", "OpenAI-compatible base URL")

	fset.StringVar(&cors, "cors", "", "Comma-separated allowed CORS origins")
	fset.StringVar(&ttl, "action-ttl", "", "Pending action lifetime (Go duration)")
	fset.StringVar(&cfg.ActionStorePath, "action-store", "", "SQLite file for pending actions (memory when empty)")
	fset.StringVar(&cfg.SQLLogFile, "sql-log", "", "File receiving the agent SQL query log")
	fset.StringVar(&rate, "llm-rate", "", "LLM requests per second")

	if err := fset.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = DefaultPort
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	if cfg.AgentDatabaseURL == "" {
		cfg.AgentDatabaseURL = os.Getenv("AGENT_DATABASE_URL")
	}
	if cfg.AgentDatabaseURL == "" {
		cfg.AgentDatabaseURL = cfg.DatabaseURL
	}

	if cfg.OpenAIAPIKey == "" {
		cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.OpenAIModel == "" {
		cfg.OpenAIModel = envOr("OPENAI_MODEL", DefaultOpenAIModel)
	}
	if cfg.OpenAIBaseURL == "" {
		cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	}

	if cors == "" {
		cors = envOr("CORS_ORIGINS", DefaultCORSOrigin)
	}
	cfg.CORSOrigins = splitList(cors)

	if ttl == "" {
		ttl = os.Getenv("ACTION_TTL")
	}
	cfg.ActionTTL = DefaultActionTTL
	if ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid ACTION_TTL %q", ttl)
		}
		cfg.ActionTTL = d
	}

	if cfg.ActionStorePath == "" {
		cfg.ActionStorePath = os.Getenv("ACTION_STORE_PATH")
	}
	if cfg.SQLLogFile == "" {
		cfg.SQLLogFile = os.Getenv("SQL_LOG_FILE")
	}

	if rate == "" {
		rate = os.Getenv("LLM_RATE_LIMIT")
	}
	cfg.LLMRateLimit = DefaultLLMRate
	if rate != "" {
		r, err := strconv.ParseFloat(rate, 64)
		if err != nil || r <= 0 {
			return Config{}, fmt.Errorf("invalid LLM_RATE_LIMIT %q", rate)
		}
		cfg.LLMRateLimit = r
	}

	return cfg, nil
}

// AssistantEnabled reports whether an LLM key is configured
func (c Config) AssistantEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
