//go:build go1.18

package domain

import (
	"testing"
	"unicode/utf8"
)

// FuzzParseEntryID tests that parsing never panics on arbitrary input
// and always returns either a valid ID or an error.
func FuzzParseEntryID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")
	f.Add("'; DROP TABLE duty_status_entries;--")
	f.Add(string([]byte{0x00, 0x01, 0x02}))

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseEntryID(input)
		if err == nil {
			roundTrip, err2 := ParseEntryID(id.String())
			if err2 != nil {
				t.Errorf("valid ID failed round-trip: %v", err2)
			}
			if roundTrip != id {
				t.Error("round-trip changed ID value")
			}
		}
		if !utf8.ValidString(input) && err == nil {
			t.Error("non-UTF8 input was accepted")
		}
	})
}

// FuzzParseDriverID ensures external ids never carry whitespace or control bytes.
func FuzzParseDriverID(f *testing.F) {
	f.Add("driver-1")
	f.Add("")
	f.Add("a b")
	f.Add("\xff\xfe")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseDriverID(input)
		if err != nil {
			return
		}
		if !utf8.ValidString(string(id)) {
			t.Error("accepted non-UTF8 driver id")
		}
		again, err := ParseDriverID(string(id))
		if err != nil || again != id {
			t.Error("driver id is not stable under re-parsing")
		}
	})
}
