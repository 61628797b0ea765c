package resilience

import (
	"sync"

	"github.com/sony/gobreaker/v2"
)

// ProviderHealth is a point-in-time view of one provider's circuit state.
type ProviderHealth struct {
	Name         string           `json:"name"`
	CircuitState string           `json:"circuit_state"`
	Counts       gobreaker.Counts `json:"counts"`
}

// Healthy reports whether the circuit is closed.
func (h ProviderHealth) Healthy() bool {
	return h.CircuitState == gobreaker.StateClosed.String()
}

// Registry tracks the resilient clients of all external providers so the
// ops surface can report their health.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{clients: make(map[string]*Client)}
}

// Register adds a client under the given provider name.
func (r *Registry) Register(name string, client *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
}

// Health returns the health of every registered provider.
func (r *Registry) Health() []ProviderHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ProviderHealth, 0, len(r.clients))
	for name, c := range r.clients {
		out = append(out, ProviderHealth{
			Name:         name,
			CircuitState: c.State().String(),
			Counts:       c.Counts(),
		})
	}
	return out
}
