package embedder

import "fmt"

// Registry resolves a Knowledge Base's embedding_model reference (§3) to a
// configured Embedder instance, grounded on hector's factory.go pattern of
// keying embedder construction by a config tag — here the tag is the model
// name itself since each KB names its model directly rather than a
// provider+model pair.
type Registry struct {
	byModel map[string]Embedder
}

func NewRegistry() *Registry {
	return &Registry{byModel: make(map[string]Embedder)}
}

// Register associates model with a constructed Embedder.
func (r *Registry) Register(model string, e Embedder) {
	r.byModel[model] = e
}

// Get returns the Embedder registered for model.
func (r *Registry) Get(model string) (Embedder, error) {
	e, ok := r.byModel[model]
	if !ok {
		return nil, fmt.Errorf("embedder: no embedder registered for model %q", model)
	}
	return e, nil
}
