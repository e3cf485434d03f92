// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package proximity

import (
	"log/slog"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/eventroll/models"
)

var (
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotInitialized   = errors.New("ranging service not initialized")
	ErrClosed           = errors.New("feed closed")
)

// DefaultQueueSize is the number of batches a Feed buffers for its subscriber.
const DefaultQueueSize = 8

// Region identifies the beacons an attendance session listens for.
type Region struct {
	Identifier string
	Major      int
	Minor      int
}

var DefaultRegion = Region{Identifier: "event_attendance", Major: 1, Minor: 6}

type Beacon struct {
	UUID      string
	RSSI      int
	Proximity string
	Distance  float64
	Major     int
	Minor     int
}

// Batch is one ranging callback. Position is the scanning device's own fix,
// nil when it has none.
type Batch struct {
	Beacons        []Beacon
	Position       *models.Coordinates
	LocationDenied bool
	ReceivedAt     time.Time
	// Forced batches come from a manual override and skip the debounce.
	Forced bool
}

// Ranger is the ranging service a session depends on.
type Ranger interface {
	Init() error
	StartMonitoring(Region) error
	StartRanging(Region) error
	StopMonitoring(Region) error
	StopRanging(Region) error
	// Subscribe delivers batches until cancel is called.
	Subscribe() (<-chan Batch, func())
}

// Feed is a Ranger fed over HTTP: the staff device posts what it ranges and
// Publish hands it to the single subscriber. Batches published while nobody
// is ranging, or while the queue is full, are dropped.
type Feed struct {
	radioDenied bool
	queueSize   int

	mu          sync.Mutex
	initialized bool
	monitoring  map[Region]bool
	ranging     map[Region]bool
	ch          chan Batch
	closed      bool
	dropped     int
}

var _ Ranger = (*Feed)(nil)

// NewFeed creates a feed. radioDenied mirrors the device reporting that the
// bluetooth permission was refused.
func NewFeed(radioDenied bool, queueSize int) *Feed {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Feed{
		radioDenied: radioDenied,
		queueSize:   queueSize,
		monitoring:  make(map[Region]bool),
		ranging:     make(map[Region]bool),
	}
}

func (f *Feed) Init() error {
	if f.radioDenied {
		return errors.Wrap(ErrPermissionDenied, "bluetooth")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = true
	return nil
}

func (f *Feed) StartMonitoring(r Region) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return ErrNotInitialized
	}
	f.monitoring[r] = true
	return nil
}

func (f *Feed) StartRanging(r Region) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return ErrNotInitialized
	}
	f.ranging[r] = true
	return nil
}

func (f *Feed) StopMonitoring(r Region) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.monitoring, r)
	return nil
}

func (f *Feed) StopRanging(r Region) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.ranging, r)
	return nil
}

// Subscribe returns the delivery channel. A feed supports one subscriber at a
// time; a second call while the first is active gets a closed channel.
func (f *Feed) Subscribe() (<-chan Batch, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.ch != nil || f.closed {
		ch := make(chan Batch)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan Batch, f.queueSize)
	f.ch = ch
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			if f.ch == ch {
				f.ch = nil
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Publish queues a batch for the subscriber. It never blocks.
func (f *Feed) Publish(b Batch) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrClosed
	}
	if f.ch == nil || len(f.ranging) == 0 {
		f.dropped++
		slog.Warn("dropping sighting batch, not ranging", "beacons", len(b.Beacons))
		return nil
	}
	if b.ReceivedAt.IsZero() {
		b.ReceivedAt = time.Now()
	}

	select {
	case f.ch <- b:
	default:
		f.dropped++
		slog.Warn("dropping sighting batch, queue full",
			"beacons", len(b.Beacons),
			"queue_size", f.queueSize,
			"dropped_total", f.dropped,
		)
	}
	return nil
}

// Close stops the feed for good. Any active subscription is ended.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	if f.ch != nil {
		close(f.ch)
		f.ch = nil
	}
}

// Active reports whether the feed is subscribed and ranging.
func (f *Feed) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ch != nil && len(f.ranging) > 0
}

func (f *Feed) Dropped() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
