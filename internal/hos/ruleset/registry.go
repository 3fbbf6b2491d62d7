// Package ruleset holds the catalog of jurisdictional HOS limit tables.
//
// A Registry is immutable once built and safe for concurrent use without
// locking. Reloading a catalog builds a new Registry and swaps it in through a
// Holder; readers that already hold the old Registry keep a consistent view.
package ruleset

import (
	"slices"
	"sort"
	"time"

	"fleetops/internal/hos/models"
	dErrors "fleetops/pkg/domain-errors"
)

// Registry maps a rule-set key to its versions ordered by effective date.
type Registry struct {
	versions map[string][]models.RuleSet
}

// New validates rule sets and builds a Registry. Versions of the same key
// must have distinct effective dates.
func New(sets ...models.RuleSet) (*Registry, error) {
	r := &Registry{versions: make(map[string][]models.RuleSet)}
	for _, rs := range sets {
		if err := rs.Validate(); err != nil {
			return nil, err
		}
		r.versions[rs.Key] = append(r.versions[rs.Key], rs)
	}
	for key, vs := range r.versions {
		sort.Slice(vs, func(i, j int) bool { return vs[i].EffectiveFrom.Before(vs[j].EffectiveFrom) })
		for i := 1; i < len(vs); i++ {
			if vs[i].EffectiveFrom.Equal(vs[i-1].EffectiveFrom) {
				return nil, dErrors.New(dErrors.CodeValidation, "duplicate rule set version").
					WithDetail("rule_set", key).
					WithDetail("effective_from", vs[i].EffectiveFrom.Format(time.DateOnly))
			}
		}
	}
	return r, nil
}

func unknown(key string) error {
	return dErrors.New(dErrors.CodeUnknownRuleSet, "unknown rule set").WithDetail("rule_set", key)
}

// Resolve returns the newest version of key.
func (r *Registry) Resolve(key string) (models.RuleSet, error) {
	vs := r.versions[key]
	if len(vs) == 0 {
		return models.RuleSet{}, unknown(key)
	}
	return vs[len(vs)-1], nil
}

// Effective returns the version of key in force at at.
func (r *Registry) Effective(key string, at time.Time) (models.RuleSet, error) {
	vs := r.versions[key]
	if len(vs) == 0 {
		return models.RuleSet{}, unknown(key)
	}
	for i := len(vs) - 1; i >= 0; i-- {
		if !vs[i].EffectiveFrom.After(at) {
			return vs[i], nil
		}
	}
	return models.RuleSet{}, dErrors.New(dErrors.CodeUnknownRuleSet, "no rule set version in force").
		WithDetail("rule_set", key).
		WithDetail("at", at.Format(time.RFC3339Nano))
}

// Keys lists the registered keys in sorted order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.versions))
	for k := range r.versions {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
