// Package config provides the typed configuration system: feature flags,
// extraction cascade and pipeline stage tables, LLM provider settings, and
// the research/API defaults. Configuration is loaded once at startup from
// YAML files with environment-variable expansion and merged over built-in
// defaults; the resulting Config is immutable and threaded explicitly
// through constructors.
package config

import "time"

// Config is the umbrella configuration object returned by Initialize and
// used throughout the application.
type Config struct {
	configDir string

	Features   Features          `yaml:"features"`
	Extraction ExtractionConfig  `yaml:"extraction"`
	LLM        LLMConfig         `yaml:"llm"`
	Research   ResearchConfig    `yaml:"research"`
	Server     ServerConfig      `yaml:"server"`
}

// ConfigDir returns the configuration directory path.
func (c *Config) ConfigDir() string {
	return c.configDir
}

// Features holds the process-wide feature flags. Tests override behavior by
// passing an alternate Features value, never by mutating the environment.
type Features struct {
	// UseNERFirstPipeline selects the NER-first three-stage pipeline
	// (default) over the legacy three-rank cascade.
	UseNERFirstPipeline *bool `yaml:"use_spacy_first_pipeline"`
	// UseDSPyPrompts selects the DSPy-optimized prompt pair over the legacy
	// generic pair when no trained domain prompts exist.
	UseDSPyPrompts *bool `yaml:"use_dspy_prompts"`
	UseCoreference *bool `yaml:"use_coreference"`
	UseCrossSentence *bool `yaml:"use_cross_sentence"`
	UseEntityFilter  *bool `yaml:"use_entity_filter"`
}

// NERFirstPipeline reports the resolved flag (default true).
func (f Features) NERFirstPipeline() bool { return f.UseNERFirstPipeline == nil || *f.UseNERFirstPipeline }

// DSPyPrompts reports the resolved flag (default true).
func (f Features) DSPyPrompts() bool { return f.UseDSPyPrompts == nil || *f.UseDSPyPrompts }

// Coreference reports the resolved flag (default true).
func (f Features) Coreference() bool { return f.UseCoreference == nil || *f.UseCoreference }

// CrossSentence reports the resolved flag (default true).
func (f Features) CrossSentence() bool { return f.UseCrossSentence == nil || *f.UseCrossSentence }

// EntityFilter reports the resolved flag (default true).
func (f Features) EntityFilter() bool { return f.UseEntityFilter == nil || *f.UseEntityFilter }

// CascadeRankConfig configures a single rank of the legacy cascade.
type CascadeRankConfig struct {
	Rank                   int              `yaml:"rank"`
	Model                  string           `yaml:"model"`
	Method                 ExtractionMethod `yaml:"method"`
	EntityTimeoutS         int              `yaml:"entity_timeout_s"`
	RelationTimeoutS       int              `yaml:"relation_timeout_s"`
	MaxRetries             int              `yaml:"max_retries"`
	RetryBackoffMultiplier int              `yaml:"retry_backoff_multiplier"`
}

// EntityTimeout returns the entity-extraction deadline for this rank.
func (c CascadeRankConfig) EntityTimeout() time.Duration {
	return time.Duration(c.EntityTimeoutS) * time.Second
}

// RelationTimeout returns the relation-extraction deadline for this rank.
func (c CascadeRankConfig) RelationTimeout() time.Duration {
	return time.Duration(c.RelationTimeoutS) * time.Second
}

// PipelineStageConfig configures a single stage of the NER-first pipeline.
type PipelineStageConfig struct {
	Stage         int              `yaml:"stage"`
	Name          string           `yaml:"name"`
	Method        ExtractionMethod `yaml:"method"`
	Model         string           `yaml:"model,omitempty"`
	TimeoutS      int              `yaml:"timeout_s"`
	MaxRetries    int              `yaml:"max_retries"`
	// FallbackToLLM is only meaningful for stage 1: if the NER baseline
	// fails or returns nothing, run a single LLM entity extraction instead.
	FallbackToLLM bool `yaml:"fallback_to_llm"`
}

// Timeout returns the stage deadline.
func (c PipelineStageConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutS) * time.Second
}

// ExtractionConfig groups extraction tuning knobs.
type ExtractionConfig struct {
	Cascade  []CascadeRankConfig   `yaml:"cascade"`
	Pipeline []PipelineStageConfig `yaml:"pipeline"`

	// GleaningSteps is the number of completeness-probe rounds after the
	// initial extraction; 0 disables gleaning.
	GleaningSteps int `yaml:"gleaning_steps"`

	// MaxConcurrentDocuments bounds process-wide extraction parallelism.
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents"`

	// Consolidator limits.
	MinEntityNameLength int     `yaml:"min_entity_name_length"`
	MaxEntityNameLength int     `yaml:"max_entity_name_length"`
	DedupSimilarity     float64 `yaml:"dedup_similarity_threshold"`

	// Windowing.
	WindowSize              int `yaml:"window_size"`
	WindowOverlap           int `yaml:"window_overlap"`
	CrossSentenceThreshold  int `yaml:"cross_sentence_threshold"`
	CorefMaxDistance        int `yaml:"coref_max_distance"`
}

// LLMProviderConfig configures one LLM backend.
type LLMProviderConfig struct {
	Type    ProviderType `yaml:"type"`
	BaseURL string       `yaml:"base_url,omitempty"`
	APIKey  string       `yaml:"api_key,omitempty"`
}

// LLMConfig groups gateway settings.
type LLMConfig struct {
	Providers map[string]LLMProviderConfig `yaml:"providers"`
	// DefaultProvider names the provider used when a model has no explicit
	// provider mapping.
	DefaultProvider string `yaml:"default_provider"`
	// Models maps a use case to a model name; resolved through the TTL
	// registry at call time.
	Models map[LLMUseCase]string `yaml:"models"`
	// RegistryTTLSeconds is the model-registry cache TTL.
	RegistryTTLSeconds int `yaml:"registry_ttl_seconds"`
}

// RegistryTTL returns the model registry cache TTL.
func (c LLMConfig) RegistryTTL() time.Duration {
	return time.Duration(c.RegistryTTLSeconds) * time.Second
}

// ResearchConfig groups research supervisor defaults and session retention.
type ResearchConfig struct {
	DefaultMaxIterations   int `yaml:"default_max_iterations"`
	DefaultTimeoutSeconds  int `yaml:"default_timeout_seconds"`
	StepTimeoutSeconds     int `yaml:"step_timeout_seconds"`
	MaxContextLength       int `yaml:"max_context_length"`
	SessionRetentionMinutes int `yaml:"session_retention_minutes"`
}

// SessionRetention returns how long finished sessions stay readable.
func (c ResearchConfig) SessionRetention() time.Duration {
	return time.Duration(c.SessionRetentionMinutes) * time.Minute
}

// ServerConfig groups HTTP server settings.
type ServerConfig struct {
	Port             int      `yaml:"port"`
	AllowedWSOrigins []string `yaml:"allowed_ws_origins"`
}
