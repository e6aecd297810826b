// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	_ = cliparse.LoadDotEnv(".env")
	cfg, err := cliparse.ParseFlags(os.Args[1:])

LoadDotEnv never overrides variables that are already set.

# Config Fields

  - Port: Server listen port (default: 8000)
  - DatabaseURL: PostgreSQL connection string (required)
  - AgentDatabaseURL: connection used for agent reads, usually a
    restricted role (default: DatabaseURL)
  - OpenAIAPIKey: enables the assistant endpoint when set
  - OpenAIModel: chat model (default: gpt-4o-mini)
  - OpenAIBaseURL: OpenAI-compatible endpoint
  - CORSOrigins: allowed browser origins (default: http://localhost:5173)
  - ActionTTL: lifetime of a pending agent action (default: 5m)
  - ActionStorePath: SQLite file for pending actions; memory when empty
  - SQLLogFile: JSON log of every agent SQL statement
  - LLMRateLimit: LLM requests per second (default: 1)

# Environment Variables

	PORT               → -p
	DATABASE_URL       → -d
	AGENT_DATABASE_URL → -agent-d
	OPENAI_API_KEY     → -openai-key
	OPENAI_MODEL       → -model
	OPENAI_BASE_URL    → -openai-url
	CORS_ORIGINS       → -cors
	ACTION_TTL         → -action-ttl
	ACTION_STORE_PATH  → -action-store
	SQL_LOG_FILE       → -sql-log
	LLM_RATE_LIMIT     → -llm-rate

CLI flags take precedence over environment variables.

# Validation

ParseFlags returns an error if DATABASE_URL is missing or if PORT,
ACTION_TTL or LLM_RATE_LIMIT cannot be parsed.
*/
package cliparse
