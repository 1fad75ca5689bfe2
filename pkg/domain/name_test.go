package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseName_CaseInsensitive(t *testing.T) {
	req := require.New(t)
	variants := []string{"alice", "Alice", "ALICE", "aLiCe"}

	first, err := ParseName(variants[0])
	req.NoError(err)
	for _, v := range variants[1:] {
		n, err := ParseName(v)
		req.NoError(err)
		req.Equal(first, n)
		req.Equal("alice", n.String())
	}
}

func TestParseName_Invalid(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace", "alice smith"},
		{"tab", "alice\t"},
		{"slash", "a/b"},
		{"backslash", `a\b`},
		{"leading dot", ".hidden"},
		{"dot dot", ".."},
		{"too long", string(make([]byte, MaxNameLength+1))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseName(tt.raw)
			require.ErrorIs(t, err, ErrInvalidName)
		})
	}
}

func TestParseName_Valid(t *testing.T) {
	req := require.New(t)
	for _, raw := range []string{"bob", "bob_2", "team-red", "j.doe", "zoë"} {
		_, err := ParseName(raw)
		req.NoError(err, raw)
	}
}

func TestName_JSON(t *testing.T) {
	req := require.New(t)
	var payload struct {
		Name Name `json:"name"`
	}
	req.NoError(json.Unmarshal([]byte(`{"name":"Bob"}`), &payload))
	req.Equal(MustParseName("bob"), payload.Name)

	out, err := json.Marshal(payload)
	req.NoError(err)
	req.JSONEq(`{"name":"bob"}`, string(out))

	req.ErrorIs(json.Unmarshal([]byte(`{"name":"b o b"}`), &payload), ErrInvalidName)
}

func TestMemberSet(t *testing.T) {
	req := require.New(t)
	set := MemberSet(MustParseName("carol"), MustParseName("Alice"), MustParseName("alice"), MustParseName("bob"))
	req.Equal([]string{"alice", "bob", "carol"}, NameStrings(set))
}

func TestPage_Validate(t *testing.T) {
	req := require.New(t)
	req.NoError(Page{Number: 0, Size: 1}.Validate())
	req.NoError(Page{Number: 3, Size: MaxPageSize}.Validate())
	req.ErrorIs(Page{Number: -1, Size: 10}.Validate(), ErrBadRequest)
	req.ErrorIs(Page{Number: 0, Size: 0}.Validate(), ErrBadRequest)
	req.ErrorIs(Page{Number: 0, Size: MaxPageSize + 1}.Validate(), ErrBadRequest)
	req.Equal(20, Page{Number: 2, Size: 10}.Offset())
}
