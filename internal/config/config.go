package config

import (
	"fmt"
)

type Config struct {
	Server  ServerConfig
	LLM     LLMConfig
	Swarm   SwarmConfig
	Persona PersonaConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port     int
	MCPPort  int
	APIToken string
}

type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	MaxAttempts int
}

type SwarmConfig struct {
	WorkerCount       int
	CriticCount       int
	TopK              int
	WorkerParallelism int
	CriticParallelism int
}

type PersonaConfig struct {
	Dataset string
	File    string
	Seed    int
}

type StorageConfig struct {
	DataDir string
}

type LogConfig struct {
	Level string
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:    4600,
			MCPPort: 4601,
		},
		LLM: LLMConfig{
			BaseURL:     "https://openrouter.ai/api/v1",
			Model:       "openai/gpt-5-mini",
			MaxAttempts: 3,
		},
		Swarm: SwarmConfig{
			WorkerCount:       8,
			CriticCount:       5,
			TopK:              10,
			WorkerParallelism: 4,
			CriticParallelism: 4,
		},
		Persona: PersonaConfig{
			Dataset: "nvidia/Nemotron-Personas-USA",
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the JSON config file at
// $XDG_CONFIG_HOME/ideaforge/config.json, then applies IDEAFORGE_*
// environment variable overrides on top.
func Load() (Config, error) {
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b Backend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	return cfg, nil
}

// RequireAPIKey reports an error when no OpenRouter API key is configured.
// Only commands that call the model need it; catalog-only commands load
// config without one.
func (c Config) RequireAPIKey() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("missing required config: OpenRouter API key. Set it via environment variable IDEAFORGE_OPENROUTER_API_KEY")
	}
	return nil
}
