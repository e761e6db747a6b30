package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/patungan/internal/bill"
)

// ErrNotFound indicates the session does not exist or has expired. Expiry is
// terminal: callers must create a new session, there is no recovery.
var ErrNotFound = errors.New("session not found")

// Record is the persisted shape of a session: one Redis hash with the bill,
// the per-participant item claims and the display names, each stored as an
// independently JSON-encoded field.
type Record struct {
	Bill       bill.Bill
	Selections map[string][]string
	Names      map[string]string
}

const (
	fieldBill       = "bill"
	fieldSelections = "selections"
	fieldNames      = "names"
)

// Store persists sessions in Redis hashes with a sliding TTL.
type Store struct {
	R   *redis.Client
	TTL time.Duration
}

func (s *Store) ttl() time.Duration {
	if s == nil || s.TTL <= 0 {
		return time.Hour
	}
	return s.TTL
}

func (s *Store) key(id string) string {
	return "session:" + id
}

// Create writes a fresh session record with empty selections and names and
// arms the expiry timer.
func (s *Store) Create(ctx context.Context, id string, b bill.Bill) error {
	if s == nil || s.R == nil {
		return errors.New("session store not configured")
	}
	billJSON, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode bill: %w", err)
	}
	key := s.key(id)
	if err := s.R.HSet(ctx, key,
		fieldBill, billJSON,
		fieldSelections, "{}",
		fieldNames, "{}",
	).Err(); err != nil {
		return err
	}
	return s.R.Expire(ctx, key, s.ttl()).Err()
}

// Get loads the full session record. Returns ErrNotFound when the hash is
// missing, which covers both never-created and expired sessions.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	if s == nil || s.R == nil {
		return Record{}, errors.New("session store not configured")
	}
	fields, err := s.R.HGetAll(ctx, s.key(id)).Result()
	if err != nil {
		return Record{}, err
	}
	if len(fields) == 0 || fields[fieldBill] == "" {
		return Record{}, ErrNotFound
	}

	var rec Record
	if err := json.Unmarshal([]byte(fields[fieldBill]), &rec.Bill); err != nil {
		return Record{}, fmt.Errorf("decode bill: %w", err)
	}
	rec.Selections = map[string][]string{}
	if raw := fields[fieldSelections]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Selections); err != nil {
			return Record{}, fmt.Errorf("decode selections: %w", err)
		}
	}
	rec.Names = map[string]string{}
	if raw := fields[fieldNames]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Names); err != nil {
			return Record{}, fmt.Errorf("decode names: %w", err)
		}
	}
	return rec, nil
}

// SaveSelections replaces the selections field and refreshes the TTL.
func (s *Store) SaveSelections(ctx context.Context, id string, selections map[string][]string) error {
	return s.saveFields(ctx, id, map[string]any{fieldSelections: selections})
}

// SaveParticipants replaces both the selections and names fields in one
// write and refreshes the TTL.
func (s *Store) SaveParticipants(ctx context.Context, id string, selections map[string][]string, names map[string]string) error {
	return s.saveFields(ctx, id, map[string]any{
		fieldSelections: selections,
		fieldNames:      names,
	})
}

func (s *Store) saveFields(ctx context.Context, id string, fields map[string]any) error {
	if s == nil || s.R == nil {
		return errors.New("session store not configured")
	}
	args := make([]any, 0, len(fields)*2)
	for field, v := range fields {
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s: %w", field, err)
		}
		args = append(args, field, encoded)
	}
	key := s.key(id)
	if err := s.R.HSet(ctx, key, args...).Err(); err != nil {
		return err
	}
	return s.R.Expire(ctx, key, s.ttl()).Err()
}
