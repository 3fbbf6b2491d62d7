package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "fleetops/pkg/domain-errors"
)

// TestParseUUID_Invariants validates the parsing invariant:
// "service-minted IDs must be valid, non-empty, non-nil UUIDs"
func TestParseUUID_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseEntryID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects invalid format", func(t *testing.T) {
		_, err := ParseAmendmentID("not-a-uuid")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects nil UUID", func(t *testing.T) {
		_, err := ParseViolationID(uuid.Nil.String())
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("accepts valid UUID", func(t *testing.T) {
		validUUID := uuid.New()
		id, err := ParseEntryID(validUUID.String())
		require.NoError(t, err)
		assert.Equal(t, EntryID(validUUID), id)
	})
}

func TestParseExternalID_Invariants(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{"plain", "driver-42", true},
		{"trims surrounding space", "  driver-42  ", true},
		{"empty", "", false},
		{"only spaces", "   ", false},
		{"inner space", "driver 42", false},
		{"control character", "driver\x00", false},
		{"too long", strings.Repeat("d", maxExternalIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := ParseDriverID(tt.input)
			if !tt.ok {
				require.Error(t, err)
				assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, DriverID(strings.TrimSpace(tt.input)), id)
		})
	}
}

func TestIDsMarshalAsText(t *testing.T) {
	type payload struct {
		Entry     EntryID     `json:"entry"`
		Amendment AmendmentID `json:"amendment"`
	}
	in := payload{Entry: NewEntryID(), Amendment: NewAmendmentID()}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), in.Entry.String())

	var out payload
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}
