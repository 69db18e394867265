package pub

import "sync"

// Registry hands out instance numbers per logical topic. The first
// registrant of a topic gets instance 0 and is its primary publisher;
// later instances share the flow channel but must stay silent on
// channels that would otherwise be flooded, like the distance sensor.
type Registry struct {
	mu   sync.Mutex
	next map[string]int
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{next: make(map[string]int)}
}

// Claim registers one more instance of topic and returns its number,
// starting at 0.
func (r *Registry) Claim(topic string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.next[topic]
	r.next[topic] = n + 1
	return n
}
