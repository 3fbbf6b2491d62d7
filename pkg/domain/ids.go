package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	dErrors "fleetops/pkg/domain-errors"
)

// Typed identifiers prevent passing an entry id where an amendment id is
// expected. UUID-backed ids are minted by this service; DriverID and ActorID
// come from upstream identity systems and are opaque strings.
type (
	EntryID     uuid.UUID
	AmendmentID uuid.UUID
	ViolationID uuid.UUID
	DriverID    string
	ActorID     string
)

const maxExternalIDLength = 128

func parseUUID(s, kind string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be nil")
	}
	return u, nil
}

// ParseEntryID parses a duty-status entry id at a trust boundary.
func ParseEntryID(s string) (EntryID, error) {
	u, err := parseUUID(s, "entry id")
	return EntryID(u), err
}

// ParseAmendmentID parses an amendment request id at a trust boundary.
func ParseAmendmentID(s string) (AmendmentID, error) {
	u, err := parseUUID(s, "amendment id")
	return AmendmentID(u), err
}

// ParseViolationID parses a violation id at a trust boundary.
func ParseViolationID(s string) (ViolationID, error) {
	u, err := parseUUID(s, "violation id")
	return ViolationID(u), err
}

func NewEntryID() EntryID         { return EntryID(uuid.New()) }
func NewAmendmentID() AmendmentID { return AmendmentID(uuid.New()) }

func (id EntryID) String() string     { return uuid.UUID(id).String() }
func (id AmendmentID) String() string { return uuid.UUID(id).String() }
func (id ViolationID) String() string { return uuid.UUID(id).String() }

func (id EntryID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id AmendmentID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id ViolationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }

func (id EntryID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id AmendmentID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id ViolationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }

func (id *EntryID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = EntryID(u)
	return nil
}

func (id *AmendmentID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = AmendmentID(u)
	return nil
}

func (id *ViolationID) UnmarshalText(b []byte) error {
	u, err := uuid.ParseBytes(b)
	if err != nil {
		return err
	}
	*id = ViolationID(u)
	return nil
}

func parseExternalID(s, kind string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" cannot be empty")
	}
	if len(s) > maxExternalIDLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, kind+" is too long")
	}
	if !utf8.ValidString(s) {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
	}
	for _, r := range s {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "invalid "+kind)
		}
	}
	return s, nil
}

// ParseDriverID validates a driver identifier issued by the fleet directory.
func ParseDriverID(s string) (DriverID, error) {
	v, err := parseExternalID(s, "driver id")
	return DriverID(v), err
}

// ParseActorID validates an already-authenticated actor identifier.
func ParseActorID(s string) (ActorID, error) {
	v, err := parseExternalID(s, "actor id")
	return ActorID(v), err
}

func (id DriverID) String() string { return string(id) }
func (id ActorID) String() string  { return string(id) }
func (id DriverID) IsNil() bool    { return id == "" }
func (id ActorID) IsNil() bool     { return id == "" }
