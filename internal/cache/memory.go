package cache

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

const memorySubscriptionBuffer = 256

// MemoryStore is a single-process Store. It backs tests and runs the relay when
// Redis is not reachable at startup.
type MemoryStore struct {
	mu          sync.Mutex
	values      map[string]string
	expires     map[string]time.Time
	lists       map[string][][]byte
	subs        map[*memorySubscription]struct{}
	unavailable bool
	publishes   map[string]int
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:    make(map[string]string),
		expires:   make(map[string]time.Time),
		lists:     make(map[string][][]byte),
		subs:      make(map[*memorySubscription]struct{}),
		publishes: make(map[string]int),
	}
}

// SetUnavailable simulates losing (or regaining) the backend. Going unavailable
// ends every open subscription.
func (m *MemoryStore) SetUnavailable(unavailable bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.unavailable = unavailable
	if unavailable {
		for s := range m.subs {
			m.removeLocked(s)
		}
	}
}

// SubscriberCount returns the number of open subscriptions.
func (m *MemoryStore) SubscriberCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

// PublishCount returns how many messages were published on channel.
func (m *MemoryStore) PublishCount(channel string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.publishes[channel]
}

func (m *MemoryStore) check() error {
	if m.unavailable {
		return ErrUnavailable
	}
	return nil
}

func (m *MemoryStore) getLocked(key string) (string, bool) {
	if exp, ok := m.expires[key]; ok && time.Now().After(exp) {
		delete(m.values, key)
		delete(m.expires, key)
		return "", false
	}
	v, ok := m.values[key]
	return v, ok
}

func (m *MemoryStore) GetBool(_ context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}
	v, _ := m.getLocked(key)
	return v == "true", nil
}

func (m *MemoryStore) SetBool(ctx context.Context, key string, value bool) error {
	val := "false"
	if value {
		val = "true"
	}
	return m.Set(ctx, key, val)
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return "", false, err
	}
	v, ok := m.getLocked(key)
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	m.values[key] = value
	delete(m.expires, key)
	return nil
}

func (m *MemoryStore) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}
	delete(m.values, key)
	delete(m.expires, key)
	delete(m.lists, key)
	return nil
}

func (m *MemoryStore) PushBounded(_ context.Context, key string, value []byte, capacity int) error {
	if capacity <= 0 {
		return fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	list := append([][]byte{copyBytes(value)}, m.lists[key]...)
	if len(list) > capacity {
		list = list[:capacity]
	}
	m.lists[key] = list
	return nil
}

func (m *MemoryStore) RangeList(_ context.Context, key string, capacity int) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	list := m.lists[key]
	if capacity < len(list) {
		list = list[:capacity]
	}
	out := make([][]byte, 0, len(list))
	for _, v := range list {
		out = append(out, copyBytes(v))
	}
	return out, nil
}

// Publish delivers to subscribers under the store lock, which keeps per-channel
// FIFO order for every subscriber.
func (m *MemoryStore) Publish(_ context.Context, channel string, payload []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return err
	}

	m.publishes[channel]++
	for s := range m.subs {
		if _, ok := s.channels[channel]; !ok {
			continue
		}
		select {
		case s.out <- Message{Channel: channel, Payload: copyBytes(payload)}:
		default:
			log.Printf("WARN memory store: subscriber buffer full, dropping message on %s", channel)
		}
	}
	return nil
}

func (m *MemoryStore) Subscribe(_ context.Context, channels ...string) (Subscription, error) {
	if len(channels) == 0 {
		return nil, fmt.Errorf("subscribe requires at least one channel")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return nil, err
	}

	s := &memorySubscription{
		store:    m,
		channels: make(map[string]struct{}, len(channels)),
		out:      make(chan Message, memorySubscriptionBuffer),
	}
	for _, ch := range channels {
		s.channels[ch] = struct{}{}
	}
	m.subs[s] = struct{}{}
	return s, nil
}

func (m *MemoryStore) MarkOnce(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.check(); err != nil {
		return false, err
	}
	if _, ok := m.getLocked(key); ok {
		return false, nil
	}
	m.values[key] = "1"
	if ttl > 0 {
		m.expires[key] = time.Now().Add(ttl)
	}
	return true, nil
}

// Close ends all subscriptions.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for s := range m.subs {
		m.removeLocked(s)
	}
	return nil
}

func (m *MemoryStore) removeLocked(s *memorySubscription) {
	if _, ok := m.subs[s]; !ok {
		return
	}
	delete(m.subs, s)
	close(s.out)
}

type memorySubscription struct {
	store    *MemoryStore
	channels map[string]struct{}
	out      chan Message
}

func (s *memorySubscription) Channel() <-chan Message {
	return s.out
}

func (s *memorySubscription) Close() error {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()
	s.store.removeLocked(s)
	return nil
}

func copyBytes(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
