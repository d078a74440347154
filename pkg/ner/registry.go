package ner

import (
	"log/slog"
	"sync"

	"github.com/kgee-io/kgee/pkg/preprocess"
)

// Registry lazily builds one recognizer per language and holds it for the
// process lifetime. The build is guarded so only one concurrent loader wins.
type Registry struct {
	mu     sync.RWMutex
	models map[preprocess.Language]*Model
}

// NewRegistry creates an empty model registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[preprocess.Language]*Model)}
}

// Get returns the recognizer for a language, building it on first use.
func (r *Registry) Get(lang preprocess.Language) *Model {
	r.mu.RLock()
	model, ok := r.models[lang]
	r.mu.RUnlock()
	if ok {
		return model
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// Another loader may have won the race.
	if model, ok := r.models[lang]; ok {
		return model
	}
	model = newModel(lang)
	r.models[lang] = model
	slog.Info("ner_model_loaded", "lang", string(lang))
	return model
}

// Tagger adapts a registry to the preprocess.EntityTagger interface for the
// coreference resolver, mapping raw labels to universal categories.
type Tagger struct {
	registry *Registry
	lang     preprocess.Language
}

// NewTagger creates a tagger for a language backed by the registry.
func NewTagger(registry *Registry, lang preprocess.Language) *Tagger {
	return &Tagger{registry: registry, lang: lang}
}

// Entities implements preprocess.EntityTagger.
func (t *Tagger) Entities(text string) []preprocess.NamedEntity {
	mentions := t.registry.Get(t.lang).Recognize(text)
	entities := make([]preprocess.NamedEntity, 0, len(mentions))
	for _, m := range mentions {
		entities = append(entities, preprocess.NamedEntity{
			Name:     m.Text,
			Category: MapLabel(m.Label),
			Start:    m.Start,
			End:      m.End,
		})
	}
	return entities
}
