package main

import (
	"io"
	"log/slog"

	"fleetops/internal/platform/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hosConfig(file, defaultRuleSet string) config.HOSConfig {
	return config.HOSConfig{RuleSetFile: file, DefaultRuleSet: defaultRuleSet}
}
