package fetch

import (
	"sync"
	"time"
)

// State is the coarse health of one source pipeline.
type State string

const (
	StateIdle        State = "idle"
	StateLoading     State = "loading"
	StateOk          State = "ok"
	StateRateLimited State = "rate_limited"
	StateError       State = "error"
	StateStale       State = "stale"
)

// Info describes the current condition of one named source.
type Info struct {
	State           State     `json:"state"`
	Message         string    `json:"message,omitempty"`
	LastOk          time.Time `json:"lastOk,omitempty"`
	UsingPremiumKey bool      `json:"usingPremiumKey"`
}

// Registry is the process-wide map from source name to pipeline status.
// Entries are created lazily on first write and live for the process
// lifetime. Subscribers are notified on every change.
type Registry struct {
	mu       sync.RWMutex
	sources  map[string]Info
	onChange []func(source string, info Info)
}

// NewRegistry creates an empty status registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Info)}
}

// OnChange registers a callback invoked after every status mutation.
// The callback runs synchronously under the registry lock and must not
// call back into the registry.
func (r *Registry) OnChange(fn func(source string, info Info)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onChange = append(r.onChange, fn)
}

// Set transitions a source to the given state with a diagnostic message.
func (r *Registry) Set(source string, state State, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.sources[source]
	info.State = state
	info.Message = message
	r.sources[source] = info
	r.notify(source, info)
}

// MarkOk records a successful refresh for a source.
func (r *Registry) MarkOk(source string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.sources[source]
	info.State = StateOk
	info.Message = ""
	info.LastOk = time.Now()
	r.sources[source] = info
	r.notify(source, info)
}

// SetPremium records whether a source is currently using authenticated
// premium access.
func (r *Registry) SetPremium(source string, premium bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	info := r.sources[source]
	info.UsingPremiumKey = premium
	r.sources[source] = info
	r.notify(source, info)
}

// Get returns the status of one source.
func (r *Registry) Get(source string) (Info, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	info, ok := r.sources[source]
	return info, ok
}

// All returns a copy of every source status.
func (r *Registry) All() map[string]Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Info, len(r.sources))
	for name, info := range r.sources {
		out[name] = info
	}
	return out
}

func (r *Registry) notify(source string, info Info) {
	for _, fn := range r.onChange {
		fn(source, info)
	}
}
