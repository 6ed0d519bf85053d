package session

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

// Keys used by the checkout pipeline
const (
	KeyCart          = "cart"
	KeyCheckoutToken = "checkout_token"
	KeyOrderID       = "order_id"
	KeyCustomer      = "customer"
)

// State is the server-side key-value state of a single browsing session.
// Take is a single atomic read-and-delete.
type State interface {
	ID() string
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(keys ...string)
	Take(key string) (string, bool)
}

// Store hands out the state for a session id
type Store interface {
	Load(id string) State
	Destroy(id string)
}

// MemoryStore keeps session state in process memory and expires idle
// sessions after ttl
type MemoryStore struct {
	sessions map[string]*memoryState
	mutex    sync.Mutex
	ttl      time.Duration
	stop     chan struct{}
	once     sync.Once
}

// NewMemoryStore creates a new in-memory session store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		sessions: make(map[string]*memoryState),
		ttl:      ttl,
		stop:     make(chan struct{}),
	}

	// Start cleanup goroutine
	go s.cleanup(time.Minute)

	return s
}

// Load returns the state for id, creating it when missing
func (s *MemoryStore) Load(id string) State {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	state, ok := s.sessions[id]
	if !ok {
		state = &memoryState{id: id, values: make(map[string]string)}
		s.sessions[id] = state
	}
	state.touch()
	return state
}

// Destroy drops all state of a session
func (s *MemoryStore) Destroy(id string) {
	s.mutex.Lock()
	delete(s.sessions, id)
	s.mutex.Unlock()
}

// Len returns the number of live sessions
func (s *MemoryStore) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions)
}

// Close stops the cleanup goroutine
func (s *MemoryStore) Close() {
	s.once.Do(func() { close(s.stop) })
}

// Expire removes sessions idle for longer than the ttl
func (s *MemoryStore) Expire(now time.Time) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	cutoff := now.Add(-s.ttl)
	for id, state := range s.sessions {
		if state.lastSeen().Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}

func (s *MemoryStore) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.Expire(time.Now())
		case <-s.stop:
			return
		}
	}
}

type memoryState struct {
	id       string
	values   map[string]string
	mutex    sync.Mutex
	accessed time.Time
}

func (m *memoryState) ID() string {
	return m.id
}

func (m *memoryState) Get(key string) (string, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	value, ok := m.values[key]
	return value, ok
}

func (m *memoryState) Set(key, value string) {
	m.mutex.Lock()
	m.values[key] = value
	m.mutex.Unlock()
}

func (m *memoryState) Delete(keys ...string) {
	m.mutex.Lock()
	for _, key := range keys {
		delete(m.values, key)
	}
	m.mutex.Unlock()
}

func (m *memoryState) Take(key string) (string, bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	value, ok := m.values[key]
	if ok {
		delete(m.values, key)
	}
	return value, ok
}

func (m *memoryState) touch() {
	m.mutex.Lock()
	m.accessed = time.Now()
	m.mutex.Unlock()
}

func (m *memoryState) lastSeen() time.Time {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	return m.accessed
}

// GetJSON decodes the value stored under key into v. It reports false when
// the key is missing.
func GetJSON(state State, key string, v interface{}) (bool, error) {
	raw, ok := state.Get(key)
	if !ok || raw == "" {
		return false, nil
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return false, fmt.Errorf("failed to decode session value %s: %w", key, err)
	}
	return true, nil
}

// SetJSON stores v under key as JSON
func SetJSON(state State, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode session value %s: %w", key, err)
	}
	state.Set(key, string(data))
	return nil
}
