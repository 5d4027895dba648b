package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	glog "github.com/labstack/gommon/log"
	"github.com/shopspring/decimal"

	"school_transport_echo/internal/models"
)

func testLogger() *glog.Logger {
	l := glog.New("test")
	l.SetOutput(io.Discard)
	return l
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// seededStore has students s1, s2 and routes r1 (Westlands), r2 (Karen)
func seededStore() *MemoryStore {
	store := NewMemoryStore()
	store.AddStudent(models.Student{ID: "s1", Name: "Amani Otieno", ClassName: "Grade 4"})
	store.AddStudent(models.Student{ID: "s2", Name: "Baraka Mwangi", ClassName: "Grade 6"})
	store.AddRoute(models.Route{ID: "r1", Name: "Westlands"})
	store.AddRoute(models.Route{ID: "r2", Name: "Karen"})
	return store
}

// tickingClock returns a clock that advances one minute per call
func tickingClock() func() time.Time {
	var mu sync.Mutex
	now := time.Date(2024, time.January, 15, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Minute)
		return now
	}
}

func newTestService(t *testing.T, cfg PaymentServiceConfig) (*PaymentService, *MemoryStore) {
	t.Helper()
	store := seededStore()
	svc := NewPaymentService(store, store, testLogger(), cfg)
	clock := tickingClock()
	svc.nowFunc = clock
	store.NowFunc = clock
	return svc, store
}

var errCacheMiss = errors.New("cache miss")

// fakeCache is an in-process Cache
type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string][]byte)}
}

func (c *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = b
	c.sets++
	return nil
}

func (c *fakeCache) Get(_ context.Context, key string, dest interface{}) error {
	c.mu.Lock()
	b, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return errCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *fakeCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *fakeCache) Increment(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var n int64
	if b, ok := c.data[key]; ok {
		_ = json.Unmarshal(b, &n)
	}
	n++
	b, _ := json.Marshal(n)
	c.data[key] = b
	return n, nil
}
