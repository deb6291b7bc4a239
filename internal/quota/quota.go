// package quota guards calls to the search provider: a minimum interval between
// accepted calls, and per-key usage tracking across multiple API key slots.
package quota

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytune/internal/kvstore"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
)

const (
	DefaultWindow = 24 * time.Hour
	DefaultCost   = 1
	storageKey    = "quota-slots"
)

// Config configures a [Tracker].
type Config struct {
	Slots  []models.QuotaSlot // At least one slot. Duplicates are independent slots.
	Window time.Duration      // Usage reset window (default: 24h)
	Cost   int                // Units consumed per call (default: 1)
	Now    func() time.Time
	Store  kvstore.Store // Optional; persists usage between runs
	Logger *log.Logger
}

// Lease identifies the slot chosen by [Tracker.Acquire].
type Lease struct {
	Index  int
	Key    string
	Domain string
}

// Tracker selects API keys and accounts for their usage.
type Tracker struct {
	window time.Duration
	cost   int
	now    func() time.Time
	store  kvstore.Store
	logger *log.Logger

	mu    sync.Mutex
	slots []models.QuotaSlot
}

// NewTracker validates cfg and returns a tracker with fresh usage windows.
func NewTracker(cfg Config) (*Tracker, error) {
	if len(cfg.Slots) == 0 {
		return nil, fmt.Errorf("%w: at least one quota slot is required", shared.ErrInvalidConfig)
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Cost <= 0 {
		cfg.Cost = DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = shared.NewLogger(nil)
	}

	now := cfg.Now()
	slots := make([]models.QuotaSlot, len(cfg.Slots))
	for i, s := range cfg.Slots {
		if s.Limit <= 0 {
			return nil, fmt.Errorf("%w: quota slot %d has no limit", shared.ErrInvalidConfig, i)
		}
		if s.LastReset.IsZero() {
			s.LastReset = now
		}
		slots[i] = s
	}

	return &Tracker{
		window: cfg.Window,
		cost:   cfg.Cost,
		now:    cfg.Now,
		store:  cfg.Store,
		logger: shared.WithLogger(cfg.Logger, "component", "quota"),
		slots:  slots,
	}, nil
}

// Window returns the usage reset window.
func (t *Tracker) Window() time.Duration {
	return t.window
}

// Cost returns the units charged per call.
func (t *Tracker) Cost() int {
	return t.cost
}

// Acquire returns the least-used slot that serves domain and has room for one
// more call. Ties go to the earliest configured slot.
func (t *Tracker) Acquire(ctx context.Context, domain string) (Lease, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.resetExpired() {
		t.persist(ctx)
	}

	best := -1
	for i, s := range t.slots {
		if !matchesDomain(s.Domain, domain) || s.Headroom() < t.cost {
			continue
		}
		if best < 0 || s.Used < t.slots[best].Used {
			best = i
		}
	}

	if best < 0 {
		return Lease{}, fmt.Errorf("%w for domain %q", shared.ErrNoKeysAvailable, domain)
	}

	s := t.slots[best]
	return Lease{Index: best, Key: s.Key, Domain: s.Domain}, nil
}

// Record charges one call against the leased slot.
func (t *Tracker) Record(ctx context.Context, l Lease) {
	t.update(ctx, l, func(s *models.QuotaSlot) {
		s.Used = min(s.Used+t.cost, s.Limit)
	})
}

// Exhaust marks the leased slot as used up until its window resets.
func (t *Tracker) Exhaust(ctx context.Context, l Lease) {
	t.update(ctx, l, func(s *models.QuotaSlot) {
		s.Used = s.Limit
	})
	t.logger.Warn("quota slot exhausted", "slot", l.Index, "domain", l.Domain)
}

// ExhaustDomain marks every slot serving domain as used up.
func (t *Tracker) ExhaustDomain(ctx context.Context, domain string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.slots {
		if matchesDomain(t.slots[i].Domain, domain) {
			t.slots[i].Used = t.slots[i].Limit
		}
	}
	t.persist(ctx)
	t.logger.Warn("domain quota exhausted", "domain", domain)
}

// Slots returns a snapshot of every slot with expired windows reset.
func (t *Tracker) Slots() []models.QuotaSlot {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.resetExpired()
	out := make([]models.QuotaSlot, len(t.slots))
	copy(out, t.slots)
	return out
}

// Load restores usage persisted by an earlier run. Slots are matched by position
// and key, so editing the key list discards stale usage.
func (t *Tracker) Load(ctx context.Context) error {
	if t.store == nil {
		return nil
	}

	raw, err := t.store.Get(ctx, storageKey)
	if errors.Is(err, shared.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load quota usage: %w", err)
	}

	var saved []models.QuotaSlot
	if err := json.Unmarshal(raw, &saved); err != nil {
		return fmt.Errorf("failed to decode quota usage: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.slots {
		if i >= len(saved) || saved[i].Key != t.slots[i].Key {
			continue
		}
		t.slots[i].Used = min(saved[i].Used, t.slots[i].Limit)
		t.slots[i].LastReset = saved[i].LastReset
	}
	t.resetExpired()
	return nil
}

func (t *Tracker) update(ctx context.Context, l Lease, fn func(*models.QuotaSlot)) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l.Index < 0 || l.Index >= len(t.slots) || t.slots[l.Index].Key != l.Key {
		t.logger.Warn("ignoring unknown quota lease", "slot", l.Index)
		return
	}
	fn(&t.slots[l.Index])
	t.persist(ctx)
}

// resetExpired zeroes usage for every slot whose window has elapsed.
func (t *Tracker) resetExpired() bool {
	now := t.now()
	changed := false
	for i := range t.slots {
		if now.Sub(t.slots[i].LastReset) >= t.window {
			t.slots[i].Used = 0
			t.slots[i].LastReset = now
			changed = true
		}
	}
	return changed
}

func (t *Tracker) persist(ctx context.Context) {
	if t.store == nil {
		return
	}
	raw, err := json.Marshal(t.slots)
	if err == nil {
		err = t.store.Put(ctx, storageKey, raw)
	}
	if err != nil {
		t.logger.Warn("failed to persist quota usage", "err", err)
	}
}

func matchesDomain(slotDomain, domain string) bool {
	if slotDomain == "" || slotDomain == "*" {
		return true
	}
	return strings.EqualFold(slotDomain, domain)
}
