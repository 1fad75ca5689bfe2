package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
)

type ChannelRepo struct {
	db *badger.DB
}

func NewChannelRepo(db *badger.DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

// Create writes the document, its time index entry and one member index
// entry per member in one transaction.
func (r *ChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := json.Marshal(fromChannel(ch))
	if err != nil {
		return fmt.Errorf("encoding channel: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(channelDocKey(ch.ID), doc); err != nil {
			return err
		}
		if err := txn.Set(channelIndexKey(ch.CreatedAt, ch.ID), nil); err != nil {
			return err
		}
		for _, m := range ch.Members {
			if err := txn.Set(memberIndexKey(m, ch.CreatedAt, ch.ID), nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return repository.StorageError("insert channel", err)
	}
	return nil
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ch *domain.Channel
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := getChannel(txn, id)
		ch = found
		return err
	})
	if err != nil {
		return nil, repository.StorageError("get channel", err)
	}
	return ch, nil
}

// List scans the member index of one filtered member, or every channel when
// the filter names none, newest first.
func (r *ChannelRepo) List(ctx context.Context, filter repository.ChannelFilter, page domain.Page) ([]domain.Channel, error) {
	channels := []domain.Channel{}
	members := domain.MemberSet(filter.Members...)
	skip := page.Offset()
	prefix := []byte(channelIndexPrefix)
	if len(members) > 0 {
		prefix = memberIndexPrefixFor(members[0])
	}

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(seekLast(prefix)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			millis, id, err := parseIndexSuffix(it.Item().Key()[len(prefix):])
			if err != nil {
				return err
			}
			if filter.CreatedAfter != nil && millis <= filter.CreatedAfter.UnixMilli() {
				break
			}
			ch, err := getChannel(txn, id)
			if err != nil {
				return err
			}
			if ch == nil || !lo.Every(ch.Members, members) {
				continue
			}
			if skip > 0 {
				skip--
				continue
			}
			channels = append(channels, *ch)
			if len(channels) == page.Size {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, repository.StorageError("list channels", err)
	}
	return channels, nil
}

func (r *ChannelRepo) Ping(ctx context.Context) error {
	if r.db.IsClosed() {
		return repository.StorageError("ping", errors.New("badger is closed"))
	}
	return ctx.Err()
}

func getChannel(txn *badger.Txn, id uuid.UUID) (*domain.Channel, error) {
	item, err := txn.Get(channelDocKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc channelDocument
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	}); err != nil {
		return nil, fmt.Errorf("decoding channel %s: %w", id, err)
	}
	ch := doc.toChannel()
	return &ch, nil
}
