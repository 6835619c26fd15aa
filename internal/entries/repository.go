// Package entries persists each user's check-ins as one ordered list.
//
// Every mutation reads the list, changes it and writes the whole list back.
// There is no merge: the last writer wins, which is fine for one profile used
// by one process at a time.
package entries

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pbaille/checkin/internal/domain"
	"github.com/pbaille/checkin/internal/logging"
	"github.com/pbaille/checkin/internal/store"
)

const keyPrefix = "checkin.entries."

// Key returns the store key holding userID's entries.
func Key(userID string) string {
	return keyPrefix + userID
}

// Repository reads and writes entry lists in a KV store
type Repository struct {
	kv  store.KV
	log logging.Logger
}

// NewRepository returns a Repository over kv
func NewRepository(kv store.KV, log logging.Logger) *Repository {
	return &Repository{kv: kv, log: log.With("component", "entries")}
}

// Load returns userID's entries in insertion order. A missing, unreadable or
// unavailable list is an empty one.
func (r *Repository) Load(ctx context.Context, userID string) []domain.Entry {
	list, err := r.load(ctx, userID)
	if err != nil {
		r.log.Warn(ctx, "reading entries failed", "user", userID, "err", err)
		return []domain.Entry{}
	}
	return list
}

// load treats only an absent or unparsable list as empty. A failed read is
// returned so that mutations never write over data they could not see.
func (r *Repository) load(ctx context.Context, userID string) ([]domain.Entry, error) {
	raw, err := r.kv.Get(ctx, Key(userID))
	if err != nil {
		return nil, store.Unavailable("read entries", err)
	}
	if raw == nil {
		return []domain.Entry{}, nil
	}

	var list []domain.Entry
	if err := json.Unmarshal(raw, &list); err != nil {
		r.log.Warn(ctx, "discarding unreadable entries", "user", userID, "err", err)
		return []domain.Entry{}, nil
	}
	if list == nil {
		list = []domain.Entry{}
	}
	return list, nil
}

// Append adds entry to the end of userID's list and returns the saved list
func (r *Repository) Append(ctx context.Context, userID string, entry domain.Entry) ([]domain.Entry, error) {
	current, err := r.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("append entry %s: %w", entry.ID, err)
	}
	list := append(current, entry)
	if err := r.save(ctx, userID, list); err != nil {
		return nil, fmt.Errorf("append entry %s: %w", entry.ID, err)
	}
	return list, nil
}

// Remove drops the entry with entryID, if any, and returns the saved list.
// The list is written back even when nothing matched.
func (r *Repository) Remove(ctx context.Context, userID, entryID string) ([]domain.Entry, error) {
	current, err := r.load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("remove entry %s: %w", entryID, err)
	}
	kept := make([]domain.Entry, 0, len(current))
	for _, e := range current {
		if e.ID != entryID {
			kept = append(kept, e)
		}
	}

	if err := r.save(ctx, userID, kept); err != nil {
		return nil, fmt.Errorf("remove entry %s: %w", entryID, err)
	}
	return kept, nil
}

func (r *Repository) save(ctx context.Context, userID string, list []domain.Entry) error {
	raw, err := json.Marshal(list)
	if err != nil {
		return fmt.Errorf("encode entries: %w", err)
	}
	return r.kv.Set(ctx, Key(userID), raw)
}
