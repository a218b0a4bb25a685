package oracle

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable indicates the oracle could not be reached or returned
	// an unusable response
	ErrUnavailable = errors.New("oracle unavailable")
	// ErrTimeout indicates the oracle call exceeded its deadline
	ErrTimeout = errors.New("oracle timeout")
	// ErrRateLimited indicates the oracle rejected the call due to rate limits
	ErrRateLimited = errors.New("oracle rate limited")
)

// GenerateOptions controls a single oracle call.
type GenerateOptions struct {
	// Structured requests a JSON object response instead of free text
	Structured bool
	// MaxOutputTokens caps the response length; zero means provider default
	MaxOutputTokens int64
	// Temperature overrides the sampling temperature when non-nil. Some
	// models only accept their default, so callers usually leave this unset.
	Temperature *float64
}

// Oracle is the narrow boundary over a hosted generative-text capability.
// Implementations hold no mutable state and are safe for concurrent use.
// No retries happen at this layer: retry policy belongs to callers, since
// the schema repairer and the relevance matcher need different budgets.
type Oracle interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
}

// Factory creates an oracle from provider-specific configuration.
type Factory func(config map[string]string) (Oracle, error)

// Registry stores available oracle providers by name.
type Registry struct {
	providers map[string]Factory
}

// NewRegistry creates an empty provider registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Factory)}
}

// Register registers a provider factory under a name.
func (r *Registry) Register(name string, factory Factory) {
	r.providers[name] = factory
}

// Get builds an oracle for the named provider.
func (r *Registry) Get(name string, config map[string]string) (Oracle, error) {
	factory, ok := r.providers[name]
	if !ok {
		return nil, &ErrProviderNotFound{Name: name}
	}
	return factory(config)
}

// ErrProviderNotFound is returned when a provider is not registered.
type ErrProviderNotFound struct {
	Name string
}

func (e *ErrProviderNotFound) Error() string {
	return "oracle provider not found: " + e.Name
}
