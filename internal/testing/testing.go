// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/ytune/internal/kvstore"
	"github.com/desertthunder/ytune/internal/models"
)

// ErrInjected is returned by [FailingStore] when no specific error is configured.
var ErrInjected = errors.New("injected storage failure")

// FailingStore wraps a [kvstore.Store] and fails selected operations.
//
// PutErr applies to every Put unless FailPutWhen is set, in which case only
// matching writes fail.
type FailingStore struct {
	kvstore.Store

	mu          sync.Mutex
	GetErr      error
	PutErr      error
	DeleteErr   error
	KeysErr     error
	PurgeErr    error
	FailPutWhen func(key string, value []byte) bool
	Puts        int
}

func NewFailingStore(s kvstore.Store) *FailingStore {
	if s == nil {
		s = kvstore.NewMemoryBackend().Bucket("test")
	}
	return &FailingStore{Store: s}
}

func (f *FailingStore) Get(ctx context.Context, key string) ([]byte, error) {
	if f.GetErr != nil {
		return nil, f.GetErr
	}
	return f.Store.Get(ctx, key)
}

func (f *FailingStore) Put(ctx context.Context, key string, value []byte) error {
	f.mu.Lock()
	f.Puts++
	f.mu.Unlock()

	if f.PutErr != nil && (f.FailPutWhen == nil || f.FailPutWhen(key, value)) {
		return f.PutErr
	}
	return f.Store.Put(ctx, key, value)
}

func (f *FailingStore) Delete(ctx context.Context, key string) error {
	if f.DeleteErr != nil {
		return f.DeleteErr
	}
	return f.Store.Delete(ctx, key)
}

func (f *FailingStore) Keys(ctx context.Context) ([]string, error) {
	if f.KeysErr != nil {
		return nil, f.KeysErr
	}
	return f.Store.Keys(ctx)
}

func (f *FailingStore) Purge(ctx context.Context) error {
	if f.PurgeErr != nil {
		return f.PurgeErr
	}
	return f.Store.Purge(ctx)
}

// Clock is a manually advanced clock for components that accept a now func.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	}
	return &Clock{now: start}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Track builds a deterministic track for index i.
func Track(i int) models.Track {
	return models.Track{
		ID:           fmt.Sprintf("track-%03d", i),
		Title:        fmt.Sprintf("Song %d", i),
		Artist:       fmt.Sprintf("Artist %d", i%7),
		ThumbnailURL: fmt.Sprintf("https://img.example.com/%d.jpg", i),
	}
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
