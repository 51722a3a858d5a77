package config

import (
	"fmt"
	"os"
	"strconv"
)

type keyType int

const (
	kString keyType = iota
	kInt
)

type keySpec struct {
	key     string
	typ     keyType
	env     string
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.port", typ: kInt, env: "IDEAFORGE_SERVER_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.mcp_port", typ: kInt, env: "IDEAFORGE_SERVER_MCP_PORT",
		apply:   func(cfg *Config, v any) { cfg.Server.MCPPort = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.MCPPort },
	},
	{
		key: "server.api_token", typ: kString, env: "IDEAFORGE_API_TOKEN",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Server.APIToken = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.APIToken },
	},
	{
		key: "llm.openrouter_api_key", typ: kString, env: "IDEAFORGE_OPENROUTER_API_KEY",
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.LLM.APIKey = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.APIKey },
	},
	{
		key: "llm.base_url", typ: kString, env: "IDEAFORGE_LLM_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.LLM.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.BaseURL },
	},
	{
		key: "llm.model", typ: kString, env: "IDEAFORGE_LLM_MODEL",
		apply:   func(cfg *Config, v any) { cfg.LLM.Model = v.(string) },
		extract: func(cfg Config) any { return cfg.LLM.Model },
	},
	{
		key: "llm.max_attempts", typ: kInt, env: "IDEAFORGE_LLM_MAX_ATTEMPTS",
		apply:   func(cfg *Config, v any) { cfg.LLM.MaxAttempts = v.(int) },
		extract: func(cfg Config) any { return cfg.LLM.MaxAttempts },
	},
	{
		key: "swarm.worker_count", typ: kInt, env: "IDEAFORGE_SWARM_WORKER_COUNT",
		apply:   func(cfg *Config, v any) { cfg.Swarm.WorkerCount = v.(int) },
		extract: func(cfg Config) any { return cfg.Swarm.WorkerCount },
	},
	{
		key: "swarm.critic_count", typ: kInt, env: "IDEAFORGE_SWARM_CRITIC_COUNT",
		apply:   func(cfg *Config, v any) { cfg.Swarm.CriticCount = v.(int) },
		extract: func(cfg Config) any { return cfg.Swarm.CriticCount },
	},
	{
		key: "swarm.top_k", typ: kInt, env: "IDEAFORGE_SWARM_TOP_K",
		apply:   func(cfg *Config, v any) { cfg.Swarm.TopK = v.(int) },
		extract: func(cfg Config) any { return cfg.Swarm.TopK },
	},
	{
		key: "swarm.worker_parallelism", typ: kInt, env: "IDEAFORGE_SWARM_WORKER_PARALLELISM",
		apply:   func(cfg *Config, v any) { cfg.Swarm.WorkerParallelism = v.(int) },
		extract: func(cfg Config) any { return cfg.Swarm.WorkerParallelism },
	},
	{
		key: "swarm.critic_parallelism", typ: kInt, env: "IDEAFORGE_SWARM_CRITIC_PARALLELISM",
		apply:   func(cfg *Config, v any) { cfg.Swarm.CriticParallelism = v.(int) },
		extract: func(cfg Config) any { return cfg.Swarm.CriticParallelism },
	},
	{
		key: "persona.dataset", typ: kString, env: "IDEAFORGE_PERSONA_DATASET",
		apply:   func(cfg *Config, v any) { cfg.Persona.Dataset = v.(string) },
		extract: func(cfg Config) any { return cfg.Persona.Dataset },
	},
	{
		key: "persona.file", typ: kString, env: "IDEAFORGE_PERSONA_FILE",
		apply:   func(cfg *Config, v any) { cfg.Persona.File = v.(string) },
		extract: func(cfg Config) any { return cfg.Persona.File },
	},
	{
		key: "persona.seed", typ: kInt, env: "IDEAFORGE_PERSONA_SEED",
		apply:   func(cfg *Config, v any) { cfg.Persona.Seed = v.(int) },
		extract: func(cfg Config) any { return cfg.Persona.Seed },
	},
	{
		key: "storage.data_dir", typ: kString, env: "IDEAFORGE_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "log.level", typ: kString, env: "IDEAFORGE_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
}

func applyBackend(cfg *Config, b Backend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		switch s.typ {
		case kString:
			v, ok, err := b.GetString(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		case kInt:
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
		}
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		raw := os.Getenv(s.env)
		if raw == "" {
			continue
		}
		switch s.typ {
		case kString:
			s.apply(cfg, raw)
		case kInt:
			if i, err := strconv.Atoi(raw); err == nil {
				s.apply(cfg, i)
			} else {
				fmt.Fprintf(os.Stderr, "[WARN] could not parse integer from env var %s=%q: %v. Using default value.\n", s.env, raw, err)
			}
		}
	}
}
