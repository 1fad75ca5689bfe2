package kv

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/xchat/pkg/domain"
)

// Documents live under "{kind}:{id}". Listings scan ordered index keys whose
// value is empty:
//
//	idx:channel:{unix_ms_19}:{id}
//	idx:member:{name}:{unix_ms_19}:{id}
//	idx:message:{channel_id}:{unix_ms_19}:{id}
//
// Names never contain ':', so a member prefix cannot run into another name.
// The zero padded timestamp keeps lexicographic order equal to time order and
// the time ordered UUID v7 breaks ties, so a reverse scan yields newest first.
const (
	channelDocPrefix   = "channel:"
	messageDocPrefix   = "message:"
	channelIndexPrefix = "idx:channel:"
	memberIndexPrefix  = "idx:member:"
	messageIndexPrefix = "idx:message:"
)

func channelDocKey(id uuid.UUID) []byte {
	return []byte(channelDocPrefix + id.String())
}

func messageDocKey(id uuid.UUID) []byte {
	return []byte(messageDocPrefix + id.String())
}

func channelIndexKey(createdAt time.Time, id uuid.UUID) []byte {
	return fmt.Appendf(nil, "%s%019d:%s", channelIndexPrefix, createdAt.UnixMilli(), id)
}

func memberIndexPrefixFor(member domain.Name) []byte {
	return []byte(memberIndexPrefix + member.String() + ":")
}

func memberIndexKey(member domain.Name, createdAt time.Time, id uuid.UUID) []byte {
	return fmt.Appendf(memberIndexPrefixFor(member), "%019d:%s", createdAt.UnixMilli(), id)
}

func messageIndexPrefixFor(channelID uuid.UUID) []byte {
	return []byte(messageIndexPrefix + channelID.String() + ":")
}

func messageIndexKey(channelID uuid.UUID, sentAt time.Time, id uuid.UUID) []byte {
	return fmt.Appendf(messageIndexPrefixFor(channelID), "%019d:%s", sentAt.UnixMilli(), id)
}

// seekBefore returns the key a reverse iterator seeks to so that it starts at
// the newest entry strictly older than t.
func seekBefore(prefix []byte, t time.Time) []byte {
	return fmt.Appendf(append([]byte{}, prefix...), "%019d", t.UnixMilli())
}

// seekLast returns a key sorting after every key under prefix.
func seekLast(prefix []byte) []byte {
	return append(append([]byte{}, prefix...), 0xff)
}

// parseIndexSuffix splits "{unix_ms_19}:{id}".
func parseIndexSuffix(suffix []byte) (int64, uuid.UUID, error) {
	ms, id, ok := strings.Cut(string(suffix), ":")
	if !ok {
		return 0, uuid.Nil, fmt.Errorf("malformed index key suffix %q", suffix)
	}
	millis, err := strconv.ParseInt(ms, 10, 64)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("malformed index timestamp %q: %w", ms, err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return 0, uuid.Nil, fmt.Errorf("malformed index id %q: %w", id, err)
	}
	return millis, parsed, nil
}
