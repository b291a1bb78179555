// Package dedupe tracks observation keys so that the same performance is
// not recorded twice in a session.
package dedupe

import (
	"container/list"
	"context"
	"strconv"
	"strings"
	"sync"

	"github.com/okian/paceline/internal/domain/model"
)

const defaultMaxSize = 1024

// Deduper records seen keys.
type Deduper interface {
	// SeenAndRecord reports whether key was already seen and records it if
	// not, in one atomic step.
	SeenAndRecord(ctx context.Context, key string) bool
	// Unrecord forgets key, e.g. when the observation it guarded is removed.
	Unrecord(ctx context.Context, key string)
	Size() int64
}

// Key builds the composite identity of an observation: event, time to the
// hundredth, date and gender. Observations without a time fall back to
// their raw text.
func Key(o model.Observation) string {
	t := strings.TrimSpace(o.TimeText)
	if o.HasTime() {
		t = strconv.FormatFloat(o.Seconds, 'f', 2, 64)
	}
	return strings.Join([]string{o.Event, t, o.Date, string(o.Gender)}, "|")
}

// inMemoryDeduper keeps keys in insertion order. When bounded, the oldest
// key is evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]*list.Element
	order   *list.List
	maxSize int // <= 0 means unbounded
}

// NewInMemoryDeduper creates a deduper configured by opts.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Front()
		d.order.Remove(oldest)
		delete(d.seen, oldest.Value.(string))
	}
	d.seen[key] = d.order.PushBack(key)
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if e, ok := d.seen[key]; ok {
		d.order.Remove(e)
		delete(d.seen, key)
	}
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.order.Len())
}
