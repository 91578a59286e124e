// Package config loads askdata settings from defaults, askdata.yaml, the
// environment and command-line flags.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spektr-org/askdata/engine"
	"github.com/spektr-org/askdata/llm"
	"github.com/spektr-org/askdata/table"
)

// ErrInvalid marks configuration errors.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Datasets DatasetsConfig `koanf:"datasets"`
	LLM      llm.Config     `koanf:"llm"`
	Executor ExecutorConfig `koanf:"executor"`
	Log      LogConfig      `koanf:"log"`

	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string        `koanf:"addr"`
	IndexFile    string        `koanf:"index_file"`
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// DatasetsConfig locates the two datasets.
type DatasetsConfig struct {
	A             table.Source `koanf:"a"`
	B             table.Source `koanf:"b"`
	JoinKey       string       `koanf:"join_key"`
	SchemaPrompts bool         `koanf:"schema_prompts"`
	RefineSchema  bool         `koanf:"refine_schema"`
}

// ExecutorConfig bounds code execution.
type ExecutorConfig struct {
	Mode     string        `koanf:"mode"`
	Timeout  time.Duration `koanf:"timeout"`
	MaxSteps uint64        `koanf:"max_steps"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	SeqURL string `koanf:"seq_url"`
}

// Defaults, keyed the way the config file spells them.
func defaults() map[string]any {
	return map[string]any{
		"server.addr":             ":8000",
		"server.index_file":       "web/index.html",
		"server.query_timeout":    "2m",
		"datasets.a.path":         "data/cleaned_patients.csv",
		"datasets.a.table":        "",
		"datasets.b.path":         "data/cleaned_activity.csv",
		"datasets.b.table":        "",
		"datasets.join_key":       engine.DefaultJoinKey,
		"datasets.schema_prompts": false,
		"datasets.refine_schema":  false,
		"llm.provider":            llm.ProviderOpenAI,
		"llm.model":               "gpt-3.5-turbo",
		"llm.api_key":             "",
		"llm.base_url":            "",
		"llm.timeout":             "60s",
		"executor.mode":           string(engine.ModeScript),
		"executor.timeout":        engine.DefaultTimeout.String(),
		"executor.max_steps":      engine.DefaultMaxSteps,
		"log.level":               "info",
		"log.format":              "text",
		"log.seq_url":             "",
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Server.Addr == "" {
		add("server.addr is required")
	}
	if c.Server.QueryTimeout < 0 {
		add("server.query_timeout must not be negative")
	}
	if c.Datasets.A.Path == "" {
		add("datasets.a.path is required")
	}
	if c.Datasets.B.Path == "" {
		add("datasets.b.path is required")
	}
	if c.Datasets.JoinKey == "" {
		add("datasets.join_key is required")
	}
	switch strings.ToLower(c.LLM.Provider) {
	case llm.ProviderOpenAI, llm.ProviderGemini:
	default:
		add("llm.provider %q is not supported (want %q or %q)", c.LLM.Provider, llm.ProviderOpenAI, llm.ProviderGemini)
	}
	if _, err := engine.ParseMode(c.Executor.Mode); err != nil {
		add("executor.mode: %v", err)
	}
	if c.Executor.Timeout < 0 {
		add("executor.timeout must not be negative")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		add("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		add("log.format %q is not one of text, json", c.Log.Format)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// RequireLLM checks the settings needed to call a model.
func (c *Config) RequireLLM() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: no API key for %s (set llm.api_key, ASKDATA_LLM__API_KEY or %s)",
			ErrInvalid, c.LLM.Provider, apiKeyEnv(c.LLM.Provider))
	}
	return nil
}

// ExecutorOptions translates the executor settings into engine options.
func (c *Config) ExecutorOptions() []engine.Option {
	return []engine.Option{
		engine.WithTimeout(c.Executor.Timeout),
		engine.WithMaxSteps(c.Executor.MaxSteps),
		engine.WithJoinKey(c.Datasets.JoinKey),
	}
}
