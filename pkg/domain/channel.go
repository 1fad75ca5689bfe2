package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Channel struct {
	ID        uuid.UUID
	Name      *Name
	Members   []Name
	CreatedAt time.Time
}

// HasMember reports whether name belongs to the channel.
func (c *Channel) HasMember(name Name) bool {
	return lo.Contains(c.Members, name)
}

// MemberSet collapses duplicates and sorts names so that two member lists
// with the same elements compare equal.
func MemberSet(names ...Name) []Name {
	set := lo.Uniq(names)
	slices.SortFunc(set, func(a, b Name) int {
		return strings.Compare(a.value, b.value)
	})
	return set
}

// Millis truncates t to millisecond precision, the resolution of every
// persisted and transmitted timestamp.
func Millis(t time.Time) time.Time {
	return time.UnixMilli(t.UnixMilli()).UTC()
}
