package domain

import (
	"fmt"
	"regexp"
	"strings"
)

const MaxNameLength = 64

var nameRegex = regexp.MustCompile(`^[\p{L}\p{N}_-][\p{L}\p{N}_.-]*$`)

// Name identifies a user or a channel. It only ever holds the canonical
// lowercase form, so == compares names case-insensitively.
type Name struct {
	value string
}

// ParseName validates raw and returns its canonical form.
func ParseName(raw string) (Name, error) {
	lower := strings.ToLower(raw)
	switch {
	case lower == "":
		return Name{}, fmt.Errorf("%w: name is empty", ErrInvalidName)
	case len([]rune(lower)) > MaxNameLength:
		return Name{}, fmt.Errorf("%w: name is longer than %d characters", ErrInvalidName, MaxNameLength)
	case !nameRegex.MatchString(lower):
		return Name{}, fmt.Errorf("%w: %q contains disallowed characters", ErrInvalidName, raw)
	}
	return Name{value: lower}, nil
}

// MustParseName is ParseName for constants and tests.
func MustParseName(raw string) Name {
	n, err := ParseName(raw)
	if err != nil {
		panic(err)
	}
	return n
}

// ParseNames parses every element of raw. It stops at the first invalid name.
func ParseNames(raw []string) ([]Name, error) {
	names := make([]Name, 0, len(raw))
	for _, r := range raw {
		n, err := ParseName(r)
		if err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

func (n Name) String() string {
	return n.value
}

func (n Name) IsZero() bool {
	return n.value == ""
}

func (n Name) MarshalText() ([]byte, error) {
	return []byte(n.value), nil
}

func (n *Name) UnmarshalText(text []byte) error {
	parsed, err := ParseName(string(text))
	if err != nil {
		return err
	}
	*n = parsed
	return nil
}

// NameStrings returns the canonical form of every name.
func NameStrings(names []Name) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.value
	}
	return out
}

// StoredName rebuilds a Name persisted from String(). It does not validate
// again; only repositories reading their own records should call it.
func StoredName(canonical string) Name {
	return Name{value: canonical}
}

func StoredNames(canonical []string) []Name {
	out := make([]Name, len(canonical))
	for i, s := range canonical {
		out[i] = Name{value: s}
	}
	return out
}
