package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/spektr-org/askdata/llm"
)

// EnvPrefix prefixes every environment override. Nested keys use "__":
// ASKDATA_LLM__API_KEY sets llm.api_key.
const EnvPrefix = "ASKDATA_"

// configFiles are looked up in the working directory when no file is given.
var configFiles = []string{"askdata.yaml", "askdata.yml"}

// flagKeys maps command-line flags to config keys. Flags not listed here
// are command options, not configuration.
var flagKeys = map[string]string{
	"addr":           "server.addr",
	"index-file":     "server.index_file",
	"query-timeout":  "server.query_timeout",
	"data-a":         "datasets.a.path",
	"table-a":        "datasets.a.table",
	"data-b":         "datasets.b.path",
	"table-b":        "datasets.b.table",
	"join-key":       "datasets.join_key",
	"schema-prompts": "datasets.schema_prompts",
	"refine-schema":  "datasets.refine_schema",
	"provider":       "llm.provider",
	"model":          "llm.model",
	"base-url":       "llm.base_url",
	"mode":           "executor.mode",
	"exec-timeout":   "executor.timeout",
	"max-steps":      "executor.max_steps",
	"log-level":      "log.level",
	"log-format":     "log.format",
	"seq-url":        "log.seq_url",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > askdata.yaml > askdata.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range configFiles {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// Load reads configuration from a .env file, defaults, the config file,
// environment variables and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment: ASKDATA_EXECUTOR__MAX_STEPS -> executor.max_steps
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those set explicitly
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.File = used

	if cfg.LLM.APIKey == "" {
		cfg.LLM.APIKey = os.Getenv(apiKeyEnv(cfg.LLM.Provider))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// apiKeyEnv names the provider's conventional API key variable.
func apiKeyEnv(provider string) string {
	if strings.EqualFold(provider, llm.ProviderGemini) {
		return "GEMINI_API_KEY"
	}
	return "OPENAI_API_KEY"
}
