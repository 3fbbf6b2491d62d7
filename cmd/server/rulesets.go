package main

import (
	"context"
	"log/slog"
	"time"

	"fleetops/internal/hos/ruleset"
	"fleetops/internal/platform/config"
)

// reloadRecorder counts catalog reloads by outcome.
type reloadRecorder interface {
	IncRuleSetReload(err error)
}

// loadRuleSets reads the configured catalog file, or falls back to the
// built-in catalog.
func loadRuleSets(cfg config.HOSConfig, log *slog.Logger) (*ruleset.Holder, error) {
	reg := ruleset.MustBuiltin()
	if cfg.RuleSetFile != "" {
		var err error
		if reg, err = ruleset.LoadFile(cfg.RuleSetFile); err != nil {
			return nil, err
		}
	}
	if _, err := reg.Resolve(cfg.DefaultRuleSet); err != nil {
		return nil, err
	}
	log.Info("rule sets loaded", "file", cfg.RuleSetFile, "keys", reg.Keys(), "default", cfg.DefaultRuleSet)
	return ruleset.NewHolder(reg), nil
}

// reloadRuleSets re-reads the catalog file until ctx is done. A failed load
// keeps the catalog in force.
func reloadRuleSets(ctx context.Context, h *ruleset.Holder, cfg config.HOSConfig, m reloadRecorder, log *slog.Logger) {
	ticker := time.NewTicker(cfg.RuleSetReload)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		err := h.Reload(cfg.RuleSetFile)
		m.IncRuleSetReload(err)
		if err != nil {
			log.ErrorContext(ctx, "rule set reload failed, keeping current catalog",
				"file", cfg.RuleSetFile,
				"error", err,
			)
		}
	}
}
