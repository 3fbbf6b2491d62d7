package ruleset

import (
	"sync/atomic"
	"time"

	"fleetops/internal/hos/models"
)

// Holder publishes the current Registry. Reads are lock-free.
type Holder struct {
	current atomic.Pointer[Registry]
}

func NewHolder(r *Registry) *Holder {
	h := &Holder{}
	h.current.Store(r)
	return h
}

// Registry returns the registry in force; callers should use one value per
// computation so every lookup sees the same catalog.
func (h *Holder) Registry() *Registry {
	return h.current.Load()
}

// Reload loads path and swaps it in. On error the previous registry stays.
func (h *Holder) Reload(path string) error {
	r, err := LoadFile(path)
	if err != nil {
		return err
	}
	h.current.Store(r)
	return nil
}

func (h *Holder) Resolve(key string) (models.RuleSet, error) {
	return h.Registry().Resolve(key)
}

func (h *Holder) Effective(key string, at time.Time) (models.RuleSet, error) {
	return h.Registry().Effective(key, at)
}
