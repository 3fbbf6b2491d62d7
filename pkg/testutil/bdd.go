package testutil

import "testing"

// Given, When and Then name nested subtests as readable steps.

func Given(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Given", desc, fn) }

func When(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "When", desc, fn) }

func Then(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "Then", desc, fn) }

// And continues the previous step kind.
func And(t *testing.T, desc string, fn func(t *testing.T)) { step(t, "And", desc, fn) }

func step(t *testing.T, kind, desc string, fn func(t *testing.T)) {
	t.Helper()
	if !t.Run(kind+" "+desc, fn) {
		t.Logf("step failed: %s %s", kind, desc)
	}
}
