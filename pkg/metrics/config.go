package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for metrics collection.
type Config struct {
	// Enabled controls whether metrics collection is active.
	Enabled bool

	// Registry is the Prometheus registry to use. If nil, DefaultRegistry
	// (registered on prometheus.DefaultRegisterer) is used.
	Registry prometheus.Registerer

	// Namespace overrides the default "tasko" namespace for metrics. It only
	// applies when Registry is set.
	Namespace string
}

// DefaultConfig returns a default metrics configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:   true,
		Registry:  prometheus.DefaultRegisterer,
		Namespace: DefaultNamespace,
	}
}

var (
	resolvedMu sync.Mutex
	resolved   = map[resolvedKey]*Registry{}
)

type resolvedKey struct {
	reg       prometheus.Registerer
	namespace string
}

// Resolve returns the metric Registry described by the config, or nil when
// metrics are disabled. Configs naming the same registerer and namespace
// share one Registry, so several components can be handed the same Config.
func (c Config) Resolve() *Registry {
	if !c.Enabled {
		return nil
	}
	if c.Registry == nil {
		return DefaultRegistry
	}
	ns := c.Namespace
	if ns == "" {
		ns = DefaultNamespace
	}
	if c.Registry == prometheus.DefaultRegisterer && ns == DefaultNamespace {
		return DefaultRegistry
	}

	resolvedMu.Lock()
	defer resolvedMu.Unlock()
	key := resolvedKey{reg: c.Registry, namespace: ns}
	if r, ok := resolved[key]; ok {
		return r
	}
	r := NewRegistryWithNamespace(c.Registry, ns)
	resolved[key] = r
	return r
}
