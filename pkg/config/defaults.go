package config

// GetBuiltinConfig returns the built-in configuration. User YAML overrides
// these values field by field during merge.
func GetBuiltinConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			Cascade:  DefaultCascade(),
			Pipeline: DefaultPipeline(),

			GleaningSteps:          0,
			MaxConcurrentDocuments: 4,

			MinEntityNameLength: 2,
			MaxEntityNameLength: 80,
			DedupSimilarity:     0.85,

			WindowSize:             3,
			WindowOverlap:          1,
			CrossSentenceThreshold: 5,
			CorefMaxDistance:       3,
		},
		LLM: LLMConfig{
			Providers: map[string]LLMProviderConfig{
				"local": {
					Type:    ProviderLocal,
					BaseURL: "http://localhost:11434",
				},
			},
			DefaultProvider: "local",
			Models: map[LLMUseCase]string{
				UseCaseEntityExtraction:   "nemotron-3-nano:latest",
				UseCaseRelationExtraction: "nemotron-3-nano:latest",
				UseCasePlanner:            "gpt-oss:20b",
				UseCaseSynthesis:          "gpt-oss:20b",
				UseCaseClassifier:         "nemotron-3-nano:latest",
			},
			RegistryTTLSeconds: 60,
		},
		Research: ResearchConfig{
			DefaultMaxIterations:    3,
			DefaultTimeoutSeconds:   180,
			StepTimeoutSeconds:      60,
			MaxContextLength:        4000,
			SessionRetentionMinutes: 60,
		},
		Server: ServerConfig{
			Port: 8080,
		},
	}
}

// DefaultCascade returns the legacy three-rank cascade table. Rank 1 is a
// fast local model, rank 2 a larger local model, rank 3 combines the
// deterministic NER baseline with LLM relation extraction for maximum
// recall.
func DefaultCascade() []CascadeRankConfig {
	return []CascadeRankConfig{
		{
			Rank:                   1,
			Model:                  "nemotron-3-nano:latest",
			Method:                 MethodLLMOnly,
			EntityTimeoutS:         300,
			RelationTimeoutS:       300,
			MaxRetries:             3,
			RetryBackoffMultiplier: 1,
		},
		{
			Rank:                   2,
			Model:                  "gpt-oss:20b",
			Method:                 MethodLLMOnly,
			EntityTimeoutS:         300,
			RelationTimeoutS:       300,
			MaxRetries:             3,
			RetryBackoffMultiplier: 1,
		},
		{
			Rank:   3,
			Model:  "gpt-oss:20b", // relation extraction only
			Method: MethodHybridNERLLM,
			// The NER baseline is synchronous; the entity timeout is
			// effectively unbounded.
			EntityTimeoutS:         9999,
			RelationTimeoutS:       600,
			MaxRetries:             3,
			RetryBackoffMultiplier: 1,
		},
	}
}

// DefaultPipeline returns the NER-first three-stage pipeline table, the
// default extraction path.
func DefaultPipeline() []PipelineStageConfig {
	return []PipelineStageConfig{
		{
			Stage:         1,
			Name:          "NER Entities",
			Method:        MethodNEROnly,
			TimeoutS:      60,
			MaxRetries:    1,
			FallbackToLLM: true,
		},
		{
			Stage:      2,
			Name:       "LLM Entity Enrichment",
			Method:     MethodLLMEntityEnrichment,
			Model:      "nemotron-3-nano:latest",
			TimeoutS:   120,
			MaxRetries: 2,
		},
		{
			Stage:      3,
			Name:       "LLM Relation Extraction",
			Method:     MethodLLMRelationOnly,
			Model:      "nemotron-3-nano:latest",
			TimeoutS:   180,
			MaxRetries: 3,
		},
	}
}
