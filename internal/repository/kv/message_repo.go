package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/vedran77/xchat/internal/repository"
	"github.com/vedran77/xchat/pkg/domain"
)

type MessageRepo struct {
	db *badger.DB
}

func NewMessageRepo(db *badger.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	doc, err := fromMessage(msg)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding message: %w", err)
	}
	err = r.db.Update(func(txn *badger.Txn) error {
		// Same guarantee as the foreign key of the postgres schema.
		if _, err := txn.Get(channelDocKey(msg.ChannelID)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("%w: channel %s", domain.ErrNotFound, msg.ChannelID)
			}
			return err
		}
		if err := txn.Set(messageDocKey(msg.ID), raw); err != nil {
			return err
		}
		return txn.Set(messageIndexKey(msg.ChannelID, msg.SentAt, msg.ID), nil)
	})
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}
	if err != nil {
		return repository.StorageError("insert message", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var msg *domain.Message
	err := r.db.View(func(txn *badger.Txn) error {
		found, err := getMessage(txn, id)
		msg = found
		return err
	})
	if err != nil {
		return nil, repository.StorageError("get message", err)
	}
	return msg, nil
}

func (r *MessageRepo) List(ctx context.Context, filter repository.MessageFilter, page domain.Page) ([]domain.Message, error) {
	messages := []domain.Message{}
	skip := page.Offset()

	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := messageIndexPrefixFor(filter.ChannelID)
		seek := seekLast(prefix)
		if filter.SentBefore != nil {
			seek = seekBefore(prefix, *filter.SentBefore)
		}

		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if skip > 0 {
				skip--
				continue
			}
			_, id, err := parseIndexSuffix(it.Item().Key()[len(prefix):])
			if err != nil {
				return err
			}
			msg, err := getMessage(txn, id)
			if err != nil {
				return err
			}
			if msg == nil {
				continue
			}
			messages = append(messages, *msg)
			if len(messages) == page.Size {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, repository.StorageError("list messages", err)
	}
	return messages, nil
}

func getMessage(txn *badger.Txn, id uuid.UUID) (*domain.Message, error) {
	item, err := txn.Get(messageDocKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var doc messageDocument
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &doc)
	}); err != nil {
		return nil, fmt.Errorf("decoding message %s: %w", id, err)
	}
	msg, err := doc.toMessage()
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
