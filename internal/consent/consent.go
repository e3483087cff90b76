package consent

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Preferences is the persisted record written by the consent banner.
type Preferences struct {
	Analytics  bool      `json:"analytics"`
	Marketing  bool      `json:"marketing"`
	Functional bool      `json:"functional"`
	UpdatedAt  time.Time `json:"updated_at,omitempty"`
}

// Store reads the current consent record. The second return value is false
// when no record has been persisted yet.
type Store interface {
	Load() (Preferences, bool)
}

func Encode(p Preferences) string {
	b, err := json.Marshal(p)
	if err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(b)
}

func Decode(raw string) (Preferences, error) {
	var p Preferences
	b, err := base64.RawURLEncoding.DecodeString(raw)
	if err != nil {
		return p, fmt.Errorf("decode consent record: %w", err)
	}
	if err = json.Unmarshal(b, &p); err != nil {
		return p, fmt.Errorf("unmarshal consent record: %w", err)
	}
	return p, nil
}

// RawStore keeps the encoded record as persisted by the browser and decodes
// it on every Load, so a replaced record is visible on the next read.
type RawStore struct {
	mu  sync.RWMutex
	raw string
}

func NewRawStore(raw string) *RawStore {
	return &RawStore{raw: raw}
}

func (s *RawStore) Set(raw string) {
	s.mu.Lock()
	s.raw = raw
	s.mu.Unlock()
}

func (s *RawStore) Raw() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.raw
}

func (s *RawStore) Load() (Preferences, bool) {
	raw := s.Raw()
	if raw == "" {
		return Preferences{}, false
	}
	p, err := Decode(raw)
	if err != nil {
		return Preferences{}, false
	}
	return p, true
}

type MemoryStore struct {
	mu    sync.RWMutex
	prefs *Preferences
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(p Preferences) {
	s.mu.Lock()
	s.prefs = &p
	s.mu.Unlock()
}

func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.prefs = nil
	s.mu.Unlock()
}

func (s *MemoryStore) Load() (Preferences, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.prefs == nil {
		return Preferences{}, false
	}
	return *s.prefs, true
}
