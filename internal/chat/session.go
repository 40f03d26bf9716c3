package chat

import (
	"context"
	"errors"
	"sync"
	"time"
)

// SessionTTL bounds how long an abandoned conversation is kept. Every Put
// restarts the clock, so only truly idle sessions expire.
const SessionTTL = 24 * time.Hour

// ErrSessionNotFound indicates the session id is unknown or expired.
var ErrSessionNotFound = errors.New("chat: session not found")

// State is the slot-filling state of one conversation. Slots only ever go
// from empty to filled; nothing downstream may blank a filled slot.
type State struct {
	SessionID string    `json:"session_id" dynamodbav:"sessionId"`
	Service   string    `json:"service,omitempty" dynamodbav:"service,omitempty"`
	Date      string    `json:"date,omitempty" dynamodbav:"date,omitempty"`
	Time      string    `json:"time,omitempty" dynamodbav:"time,omitempty"`
	InBooking bool      `json:"in_booking" dynamodbav:"inBooking"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updatedAt"`
}

// Stage names the next slot the dialogue will ask for. Used as a metric
// label and for reply selection.
type Stage string

const (
	StageIdle    Stage = "idle"
	StageService Stage = "service"
	StageDate    Stage = "date"
	StageTime    Stage = "time"
	StageConfirm Stage = "confirm"
)

// Stage derives the current stage from the filled slots. Order is fixed:
// service, then date, then time, then confirmation.
func (s *State) Stage() Stage {
	switch {
	case s == nil || !s.InBooking:
		return StageIdle
	case s.Service == "":
		return StageService
	case s.Date == "":
		return StageDate
	case s.Time == "":
		return StageTime
	default:
		return StageConfirm
	}
}

// Complete reports whether every slot is filled and the recap can be shown.
func (s *State) Complete() bool {
	return s != nil && s.Service != "" && s.Date != "" && s.Time != ""
}

// Store persists session state between messages. Get returns
// ErrSessionNotFound for unknown or expired ids.
type Store interface {
	Get(ctx context.Context, sessionID string) (*State, error)
	Put(ctx context.Context, state *State) error
	Delete(ctx context.Context, sessionID string) error
}

type memoryEntry struct {
	state     State
	expiresAt time.Time
}

// MemoryStore keeps sessions in process memory. Expiry is lazy: expired
// entries answer ErrSessionNotFound and are swept opportunistically on
// writes, never by a background goroutine.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryStore builds an empty store with the default TTL.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     SessionTTL,
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*State, error) {
	s.mu.RLock()
	entry, ok := s.entries[sessionID]
	s.mu.RUnlock()
	if !ok || s.now().After(entry.expiresAt) {
		return nil, ErrSessionNotFound
	}
	state := entry.state
	return &state, nil
}

func (s *MemoryStore) Put(ctx context.Context, state *State) error {
	if state == nil || state.SessionID == "" {
		return errors.New("chat: session state requires an id")
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.entries {
		if now.After(entry.expiresAt) {
			delete(s.entries, id)
		}
	}
	s.entries[state.SessionID] = memoryEntry{
		state:     *state,
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.entries, sessionID)
	s.mu.Unlock()
	return nil
}
