package config

import "fmt"

// Validate checks the merged configuration for structural problems. It is
// called once by Initialize; a failed validation aborts startup.
func Validate(cfg *Config) error {
	if err := validateCascade(cfg.Extraction.Cascade); err != nil {
		return err
	}
	if err := validatePipeline(cfg.Extraction.Pipeline); err != nil {
		return err
	}
	if err := validateLLM(&cfg.LLM); err != nil {
		return err
	}
	return validateResearch(&cfg.Research)
}

func validateCascade(cascade []CascadeRankConfig) error {
	for _, rank := range cascade {
		id := fmt.Sprintf("rank %d", rank.Rank)
		if rank.Rank < 1 || rank.Rank > 3 {
			return NewValidationError("cascade", id, "rank", ErrInvalidValue)
		}
		if rank.Model == "" {
			return NewValidationError("cascade", id, "model", ErrMissingRequiredField)
		}
		if !rank.Method.IsValid() {
			return NewValidationError("cascade", id, "method", ErrInvalidValue)
		}
		if rank.EntityTimeoutS <= 0 {
			return NewValidationError("cascade", id, "entity_timeout_s", ErrInvalidValue)
		}
		if rank.RelationTimeoutS <= 0 {
			return NewValidationError("cascade", id, "relation_timeout_s", ErrInvalidValue)
		}
		if rank.MaxRetries < 0 {
			return NewValidationError("cascade", id, "max_retries", ErrInvalidValue)
		}
		if rank.RetryBackoffMultiplier < 1 {
			return NewValidationError("cascade", id, "retry_backoff_multiplier", ErrInvalidValue)
		}
	}
	return nil
}

func validatePipeline(pipeline []PipelineStageConfig) error {
	for _, stage := range pipeline {
		id := fmt.Sprintf("stage %d", stage.Stage)
		if stage.Stage < 1 || stage.Stage > 3 {
			return NewValidationError("pipeline", id, "stage", ErrInvalidValue)
		}
		if !stage.Method.IsValid() {
			return NewValidationError("pipeline", id, "method", ErrInvalidValue)
		}
		if stage.TimeoutS <= 0 {
			return NewValidationError("pipeline", id, "timeout_s", ErrInvalidValue)
		}
		if stage.MaxRetries < 0 {
			return NewValidationError("pipeline", id, "max_retries", ErrInvalidValue)
		}
		if stage.Method != MethodNEROnly && stage.Model == "" {
			return NewValidationError("pipeline", id, "model", ErrMissingRequiredField)
		}
	}
	return nil
}

func validateLLM(cfg *LLMConfig) error {
	for name, provider := range cfg.Providers {
		if !provider.Type.IsValid() {
			return NewValidationError("llm_provider", name, "type", ErrInvalidValue)
		}
		if provider.Type == ProviderLocal && provider.BaseURL == "" {
			return NewValidationError("llm_provider", name, "base_url", ErrMissingRequiredField)
		}
	}
	if cfg.DefaultProvider != "" {
		if _, ok := cfg.Providers[cfg.DefaultProvider]; !ok {
			return NewValidationError("llm", "default_provider", cfg.DefaultProvider, ErrInvalidReference)
		}
	}
	for useCase := range cfg.Models {
		if !useCase.IsValid() {
			return NewValidationError("llm", "models", string(useCase), ErrInvalidValue)
		}
	}
	if cfg.RegistryTTLSeconds < 0 {
		return NewValidationError("llm", "registry", "registry_ttl_seconds", ErrInvalidValue)
	}
	return nil
}

func validateResearch(cfg *ResearchConfig) error {
	if cfg.DefaultMaxIterations < 1 || cfg.DefaultMaxIterations > 5 {
		return NewValidationError("research", "defaults", "default_max_iterations", ErrInvalidValue)
	}
	if cfg.DefaultTimeoutSeconds < 30 || cfg.DefaultTimeoutSeconds > 300 {
		return NewValidationError("research", "defaults", "default_timeout_seconds", ErrInvalidValue)
	}
	if cfg.StepTimeoutSeconds < 10 || cfg.StepTimeoutSeconds > 120 {
		return NewValidationError("research", "defaults", "step_timeout_seconds", ErrInvalidValue)
	}
	return nil
}
