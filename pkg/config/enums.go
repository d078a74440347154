package config

// ExtractionMethod determines how a cascade rank or pipeline stage extracts.
type ExtractionMethod string

const (
	// MethodLLMOnly uses the LLM for both entities and relations.
	MethodLLMOnly ExtractionMethod = "llm_only"
	// MethodHybridNERLLM uses deterministic NER for entities and the LLM for relations.
	MethodHybridNERLLM ExtractionMethod = "hybrid_ner_llm"
	// MethodNEROnly runs the deterministic NER baseline (pipeline stage 1).
	MethodNEROnly ExtractionMethod = "ner_only"
	// MethodLLMEntityEnrichment asks the LLM for additional entity kinds only (stage 2).
	MethodLLMEntityEnrichment ExtractionMethod = "llm_entity_enrichment"
	// MethodLLMRelationOnly extracts relations from known entities (stage 3).
	MethodLLMRelationOnly ExtractionMethod = "llm_relation_only"
)

// IsValid checks if the extraction method is valid.
func (m ExtractionMethod) IsValid() bool {
	switch m {
	case MethodLLMOnly, MethodHybridNERLLM, MethodNEROnly,
		MethodLLMEntityEnrichment, MethodLLMRelationOnly:
		return true
	default:
		return false
	}
}

// LLMUseCase keys the model registry: each use case resolves to a model name.
type LLMUseCase string

const (
	UseCaseEntityExtraction   LLMUseCase = "entity_extraction"
	UseCaseRelationExtraction LLMUseCase = "relation_extraction"
	UseCasePlanner            LLMUseCase = "planner"
	UseCaseSynthesis          LLMUseCase = "synthesis"
	UseCaseClassifier         LLMUseCase = "classifier"
)

// IsValid checks if the use case is valid.
func (u LLMUseCase) IsValid() bool {
	switch u {
	case UseCaseEntityExtraction, UseCaseRelationExtraction,
		UseCasePlanner, UseCaseSynthesis, UseCaseClassifier:
		return true
	default:
		return false
	}
}

// ProviderType identifies an LLM backend family.
type ProviderType string

const (
	// ProviderLocal is a single-host HTTP model runner.
	ProviderLocal ProviderType = "local"
	// ProviderGemini is the Google Gemini API.
	ProviderGemini ProviderType = "gemini"
)

// IsValid checks if the provider type is valid (empty is NOT valid).
func (p ProviderType) IsValid() bool {
	return p == ProviderLocal || p == ProviderGemini
}
