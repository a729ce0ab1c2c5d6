package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/rcliao/memori-store/internal/model"
	"github.com/rcliao/memori-store/internal/store"
)

func (s *Store) UpsertChat(ctx context.Context, c *model.ChatInteraction) error {
	value, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode chat: %w", err)
	}
	key := makeDocKey(chatPrefix, c.Namespace, c.ChatID)
	idKey := makeChatIDKey(c.ChatID)

	return s.db.Update(func(tx *badger.Txn) error {
		// A chat_id is unique across namespaces; drop the old document if
		// the interaction moved.
		item, err := tx.Get(idKey)
		switch {
		case err == nil:
			old, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if string(old) != string(key) {
				if err := tx.Delete(old); err != nil {
					return err
				}
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}

		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Set(idKey, key)
	})
}

func (s *Store) ChatHistory(ctx context.Context, ns, sessionID string, limit int) ([]model.ChatInteraction, error) {
	if limit <= 0 {
		limit = 10
	}
	var chats []model.ChatInteraction
	err := s.scan(ctx, makeNamespacePrefix(chatPrefix, ns), func(val []byte) error {
		var c model.ChatInteraction
		if err := json.Unmarshal(val, &c); err != nil {
			return fmt.Errorf("%w: %w", errCorrupt, err)
		}
		if sessionID == "" || c.SessionID == sessionID {
			chats = append(chats, c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(chats, func(i, j int) bool {
		return chats[i].Timestamp.After(chats[j].Timestamp)
	})
	if len(chats) > limit {
		chats = chats[:limit]
	}
	return chats, nil
}

func (s *Store) InsertShortTerm(ctx context.Context, m *model.ShortTermMemory) error {
	return s.insert(shortTermPrefix, m.Namespace, m.MemoryID, m)
}

func (s *Store) InsertLongTerm(ctx context.Context, m *model.LongTermMemory) error {
	return s.insert(longTermPrefix, m.Namespace, m.MemoryID, m)
}

func (s *Store) insert(prefix, ns, id string, doc any) error {
	value, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode memory: %w", err)
	}
	key := makeDocKey(prefix, ns, id)
	idKey := makeMemoryIDKey(prefix, id)

	return s.db.Update(func(tx *badger.Txn) error {
		_, err := tx.Get(idKey)
		if err == nil {
			return fmt.Errorf("%w: memory_id %s", store.ErrDuplicateKey, id)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, value); err != nil {
			return err
		}
		return tx.Set(idKey, key)
	})
}

func (s *Store) GetLongTerm(ctx context.Context, ns, id string) (*model.LongTermMemory, error) {
	var m *model.LongTermMemory
	err := s.db.View(func(tx *badger.Txn) error {
		var err error
		m, err = readLongTerm(tx, makeDocKey(longTermPrefix, ns, id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s/%s", store.ErrNotFound, ns, id)
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (s *Store) UpdateLongTerm(ctx context.Context, ns, id string, patch model.LongTermPatch) (bool, error) {
	key := makeDocKey(longTermPrefix, ns, id)
	found := true
	err := s.db.Update(func(tx *badger.Txn) error {
		m, err := readLongTerm(tx, key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		patch.Apply(m)
		value, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode memory: %w", err)
		}
		return tx.Set(key, value)
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *Store) TouchLongTerm(ctx context.Context, ns string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	at = at.UTC()
	return s.db.Update(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeDocKey(longTermPrefix, ns, id)
			m, err := readLongTerm(tx, key)
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			m.AccessCount++
			m.LastAccessedAt = &at
			value, err := json.Marshal(m)
			if err != nil {
				return err
			}
			if err := tx.Set(key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Delete(ctx context.Context, ns string, kind model.Kind) (int, error) {
	prefix, err := prefixFor(kind)
	if err != nil {
		return 0, err
	}
	return s.deleteWhere(ctx, makeNamespacePrefix(prefix, ns), kind, func([]byte) bool { return true })
}

func (s *Store) DeleteExpired(ctx context.Context, ns string, now time.Time) (int, error) {
	return s.deleteWhere(ctx, makeNamespacePrefix(shortTermPrefix, ns), model.KindShortTerm, func(val []byte) bool {
		var m model.ShortTermMemory
		if err := json.Unmarshal(val, &m); err != nil {
			return false
		}
		return m.Expired(now)
	})
}

// deleteWhere removes matching documents under prefix together with their
// uniqueness keys.
func (s *Store) deleteWhere(ctx context.Context, prefix []byte, kind model.Kind, match func(val []byte) bool) (int, error) {
	var keys [][]byte
	err := s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			val, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			if !match(val) {
				continue
			}
			keys = append(keys, item.KeyCopy(nil))
			if id, ok := uniquenessKey(kind, val); ok {
				keys = append(keys, id)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	wb := s.db.NewWriteBatch()
	deleted := 0
	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			wb.Cancel()
			return 0, err
		}
		if len(k) >= len(prefix) && string(k[:len(prefix)]) == string(prefix) {
			deleted++
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, err
	}
	return deleted, nil
}

// uniquenessKey returns the chatid/memid key that points at a document.
func uniquenessKey(kind model.Kind, val []byte) ([]byte, bool) {
	if kind == model.KindChat {
		var c model.ChatInteraction
		if json.Unmarshal(val, &c) != nil || c.ChatID == "" {
			return nil, false
		}
		return makeChatIDKey(c.ChatID), true
	}
	prefix, err := prefixFor(kind)
	if err != nil {
		return nil, false
	}
	var m model.Memory
	if json.Unmarshal(val, &m) != nil || m.MemoryID == "" {
		return nil, false
	}
	return makeMemoryIDKey(prefix, m.MemoryID), true
}

func readLongTerm(tx *badger.Txn, key []byte) (*model.LongTermMemory, error) {
	item, err := tx.Get(key)
	if err != nil {
		return nil, err
	}
	var m model.LongTermMemory
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &m)
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// scan calls fn with every value under prefix. The value slice is only
// valid for the duration of the call.
func (s *Store) scan(ctx context.Context, prefix []byte, fn func(val []byte) error) error {
	return s.db.View(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := iter.Item().Value(fn); err != nil {
				return err
			}
		}
		return nil
	})
}
