package generation

import (
	"sort"

	"github.com/istimaa-app/istimaa/internal/domain/entities"
	"github.com/istimaa-app/istimaa/pkg/llm"
)

// Provider pairs a backend client with its static descriptor
type Provider struct {
	Descriptor entities.ProviderDescriptor
	Client     llm.Client
}

// Pool holds the configured providers ordered by ascending priority number
// (lower number wins).
type Pool struct {
	providers []Provider
}

// NewPool builds a pool from the given providers
func NewPool(providers ...Provider) *Pool {
	sorted := make([]Provider, len(providers))
	copy(sorted, providers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Descriptor.Priority < sorted[j].Descriptor.Priority
	})
	return &Pool{providers: sorted}
}

// Size reports the number of configured providers
func (p *Pool) Size() int { return len(p.providers) }

// Providers returns the ranked provider list
func (p *Pool) Providers() []Provider { return p.providers }

// ByID returns the provider with the given identifier
func (p *Pool) ByID(id string) (Provider, bool) {
	for _, prov := range p.providers {
		if prov.Descriptor.ID == id {
			return prov, true
		}
	}
	return Provider{}, false
}

// SelectBest returns the highest-priority provider that still has quota and
// has not been tried in the current fallback chain.
func (p *Pool) SelectBest(quota *QuotaManager, tried map[string]bool) (Provider, bool) {
	for _, prov := range p.providers {
		id := prov.Descriptor.ID
		if tried[id] {
			continue
		}
		if quota.Remaining(id) <= 0 {
			continue
		}
		return prov, true
	}
	return Provider{}, false
}
