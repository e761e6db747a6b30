package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/noah-isme/patungan/internal/bill"
	"github.com/noah-isme/patungan/internal/lock"
	"github.com/noah-isme/patungan/internal/split"
)

// ErrUnknownItem is returned when a claims update references an item id that
// is not on the session's bill.
var ErrUnknownItem = errors.New("unknown bill item")

// View is the read contract exposed to any presentation layer. Participants
// are derived from the current snapshot on every call and never stored.
type View struct {
	Bill           bill.Bill           `json:"bill"`
	Selections     map[string][]string `json:"selections"`
	Participants   []split.Breakdown   `json:"participants"`
	UnclaimedTotal float64             `json:"unclaimedTotal"`
}

// Service owns the session lifecycle: create, read-as-view, add participant
// and replace a participant's claims. Mutations run under a per-session lock
// because selections and names are read-modify-write over shared JSON
// fields; reads take no lock.
type Service struct {
	Store *Store
	Lock  lock.Mutex
}

// Create validates and normalises the bill, wraps it in a new session with
// empty claims and returns the session id.
func (s *Service) Create(ctx context.Context, b bill.Bill) (string, error) {
	if s == nil || s.Store == nil {
		return "", errors.New("session service not configured")
	}
	normalized, err := bill.Normalize(b)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if err := s.Store.Create(ctx, id, normalized); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// View loads the current snapshot and derives every participant's breakdown.
func (s *Service) View(ctx context.Context, sessionID string) (View, error) {
	if s == nil || s.Store == nil {
		return View{}, errors.New("session service not configured")
	}
	rec, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return View{}, err
	}
	return View{
		Bill:           rec.Bill,
		Selections:     rec.Selections,
		Participants:   split.Participants(rec.Bill, rec.Selections, rec.Names),
		UnclaimedTotal: split.UnclaimedTotal(rec.Bill, rec.Selections),
	}, nil
}

// AddParticipant registers a new participant with an empty claim set and
// returns the generated participant id. The session TTL is refreshed.
func (s *Service) AddParticipant(ctx context.Context, sessionID, name string) (string, error) {
	if s == nil || s.Store == nil {
		return "", errors.New("session service not configured")
	}
	participantID := uuid.NewString()
	err := s.Lock.WithSession(ctx, sessionID, func(ctx context.Context) error {
		rec, err := s.Store.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		rec.Selections[participantID] = []string{}
		rec.Names[participantID] = name
		return s.Store.SaveParticipants(ctx, sessionID, rec.Selections, rec.Names)
	})
	if err != nil {
		return "", err
	}
	return participantID, nil
}

// SetClaims fully replaces one participant's claim set. Item ids are
// validated against the bill and deduplicated; other participants' claims
// are never touched. Re-sending the same set is a state no-op.
func (s *Service) SetClaims(ctx context.Context, sessionID, participantID string, itemIDs []string) error {
	if s == nil || s.Store == nil {
		return errors.New("session service not configured")
	}
	return s.Lock.WithSession(ctx, sessionID, func(ctx context.Context) error {
		rec, err := s.Store.Get(ctx, sessionID)
		if err != nil {
			return err
		}
		claims := make([]string, 0, len(itemIDs))
		seen := make(map[string]struct{}, len(itemIDs))
		for _, id := range itemIDs {
			if !rec.Bill.HasItem(id) {
				return fmt.Errorf("%w: %s", ErrUnknownItem, id)
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			claims = append(claims, id)
		}
		rec.Selections[participantID] = claims
		return s.Store.SaveSelections(ctx, sessionID, rec.Selections)
	})
}

// ExportCSV renders the per-participant breakdowns of the current snapshot
// as CSV.
func (s *Service) ExportCSV(ctx context.Context, sessionID string) ([]byte, error) {
	if s == nil || s.Store == nil {
		return nil, errors.New("session service not configured")
	}
	rec, err := s.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return split.ExportCSV(rec.Bill, rec.Selections, rec.Names)
}
