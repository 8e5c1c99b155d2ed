package permission

import (
	"encoding/json"
	"strings"
)

// Everyone is the stored value that opens a node to every member.
const Everyone = "@everyone"

// Kind distinguishes the three requirement variants.
type Kind int

const (
	// KindOwner restricts a node to the bot owner. It is the zero value so a
	// node nobody configured stays closed.
	KindOwner Kind = iota
	KindEveryone
	KindRole
)

// Requirement is the minimum standing needed to use a node.
// It is stored as JSON null (owner only), "@everyone", or a role name.
type Requirement struct {
	kind Kind
	role string
}

// OwnerOnly returns the owner-only requirement.
func OwnerOnly() Requirement { return Requirement{kind: KindOwner} }

// Open returns the requirement every member satisfies.
func Open() Requirement { return Requirement{kind: KindEveryone} }

// MinRole returns a requirement for the named role or anything ranked above it.
func MinRole(name string) Requirement {
	switch name {
	case "":
		return OwnerOnly()
	case Everyone:
		return Open()
	}
	return Requirement{kind: KindRole, role: name}
}

// Kind reports the variant.
func (r Requirement) Kind() Kind { return r.kind }

// Role returns the role name for KindRole requirements and "" otherwise.
func (r Requirement) Role() string { return r.role }

// String renders the requirement for chat listings.
func (r Requirement) String() string {
	switch r.kind {
	case KindEveryone:
		return Everyone
	case KindRole:
		return r.role
	default:
		return "Owner only"
	}
}

// ParseInput turns an operator's prompt answer into a requirement:
// "owner_only" for owner only, "everyone" in any case or "@everyone" for
// everyone, anything else is taken as a role name.
func ParseInput(s string) Requirement {
	s = strings.TrimSpace(s)
	switch {
	case s == "owner_only":
		return OwnerOnly()
	case strings.EqualFold(s, "everyone"), s == Everyone:
		return Open()
	}
	return MinRole(s)
}

// MarshalJSON implements json.Marshaler.
func (r Requirement) MarshalJSON() ([]byte, error) {
	switch r.kind {
	case KindEveryone:
		return json.Marshal(Everyone)
	case KindRole:
		return json.Marshal(r.role)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Requirement) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = OwnerOnly()
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*r = MinRole(s)
	return nil
}

// UnmarshalText lets legacy TOML documents, which have no null, use "" for
// owner only.
func (r *Requirement) UnmarshalText(b []byte) error {
	*r = MinRole(string(b))
	return nil
}
