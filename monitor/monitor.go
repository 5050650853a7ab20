// Package monitor keeps one subscription per feed on a shared streaming
// session and fans normalized chain events out to registered callbacks.
package monitor

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/asaskevich/EventBus"
	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

const (
	eventTopic = "monitor:event"

	// DefaultSeenCacheSize bounds the duplicate suppression window.
	DefaultSeenCacheSize = 4096
)

var ErrTransitionInProgress = errors.New("monitor is starting or stopping")

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// Callback receives every normalized event.
type Callback func(ev prototype.ChainEvent)

type Options struct {
	// Tags filters the posts feed; empty means every top-level post.
	Tags []string
	// Account filters the comments feed; empty means every reply.
	Account string
	// ProcessHistory replays HistoryBlocks recent blocks before going live.
	ProcessHistory bool
	HistoryBlocks  uint32
}

type Stats struct {
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Duplicate uint64 `json:"duplicate"`
	Panics    uint64 `json:"panics"`
}

type Monitor struct {
	client iservices.IStreamClient
	log    *logrus.Logger
	bus    EventBus.Bus
	seen   *lru.Cache

	// lock guards lifecycle transitions and is only held to flip state
	lock      deadlock.Mutex
	state     int32
	subs      []iservices.ISubscription
	callbacks int32

	delivered uint64
	dropped   uint64
	duplicate uint64
	panics    uint64
}

func New(client iservices.IStreamClient, log *logrus.Logger) *Monitor {
	seen, _ := lru.New(DefaultSeenCacheSize)
	return &Monitor{
		client: client,
		log:    log,
		bus:    EventBus.New(),
		seen:   seen,
	}
}

func (m *Monitor) State() State {
	return State(atomic.LoadInt32(&m.state))
}

func (m *Monitor) setState(s State) {
	atomic.StoreInt32(&m.state, int32(s))
}

func (m *Monitor) CallbackCount() int {
	return int(atomic.LoadInt32(&m.callbacks))
}

func (m *Monitor) Stats() Stats {
	return Stats{
		Delivered: atomic.LoadUint64(&m.delivered),
		Dropped:   atomic.LoadUint64(&m.dropped),
		Duplicate: atomic.LoadUint64(&m.duplicate),
		Panics:    atomic.LoadUint64(&m.panics),
	}
}

// AddCallback registers fn behind every callback added before it. A callback
// must not call AddCallback itself.
func (m *Monitor) AddCallback(fn Callback) {
	if fn == nil {
		return
	}
	idx := atomic.AddInt32(&m.callbacks, 1)
	isolated := func(ev prototype.ChainEvent) {
		defer func() {
			if r := recover(); r != nil {
				atomic.AddUint64(&m.panics, 1)
				m.log.WithFields(logrus.Fields{"callback": idx, "event": ev.Kind()}).Warn("monitor callback panicked: ", r)
			}
		}()
		fn(ev)
	}
	_ = m.bus.Subscribe(eventTopic, isolated)
}

// Start subscribes to the three feeds. Calling it while running is a no-op;
// only the first call from Stopped creates subscriptions.
func (m *Monitor) Start(opts Options) error {
	return m.StartContext(context.Background(), opts)
}

// StartContext is Start with a context bounding the history replay.
// Cancelling ctx during the replay fails the start.
func (m *Monitor) StartContext(ctx context.Context, opts Options) error {
	m.lock.Lock()
	switch m.State() {
	case StateRunning, StateStarting:
		m.lock.Unlock()
		return nil
	case StateStopping:
		m.lock.Unlock()
		return ErrTransitionInProgress
	}
	m.setState(StateStarting)
	m.lock.Unlock()

	subs, err := m.subscribe(ctx, opts)
	if err != nil {
		m.setState(StateStopped)
		return err
	}

	m.lock.Lock()
	m.subs = subs
	m.setState(StateRunning)
	m.lock.Unlock()
	m.log.WithFields(logrus.Fields{"tags": opts.Tags, "account": opts.Account}).Info("monitor started")
	return nil
}

type namedFeed struct {
	kind prototype.FeedKind
	feed iservices.IFeed
}

func (m *Monitor) subscribe(ctx context.Context, opts Options) ([]iservices.ISubscription, error) {
	if err := m.client.Start(); err != nil {
		return nil, errors.WithMessage(err, "start stream client")
	}
	feeds := []namedFeed{
		{prototype.FeedPosts, m.client.OnPostsWithTags(opts.Tags)},
		{prototype.FeedVotes, m.client.OnVotes()},
		{prototype.FeedComments, m.client.OnComments(opts.Account)},
	}

	if opts.ProcessHistory && opts.HistoryBlocks > 0 {
		if err := m.replay(ctx, opts.HistoryBlocks, feeds); err != nil {
			m.stopClient()
			return nil, errors.WithMessage(err, "history replay")
		}
	}

	subs := make([]iservices.ISubscription, 0, len(feeds))
	for _, f := range feeds {
		sub, err := f.feed.Subscribe(&observer{m: m, kind: f.kind})
		if err != nil {
			for _, s := range subs {
				s.Unsubscribe()
			}
			m.stopClient()
			return nil, errors.WithMessagef(err, "subscribe %s feed", f.kind)
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// replay reads the recent blocks once and routes each event through every
// feed that matches it. A read failure is logged and skipped; only a
// cancelled ctx is returned.
func (m *Monitor) replay(ctx context.Context, blocks uint32, feeds []namedFeed) error {
	events, err := m.client.Recent(ctx, blocks)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.log.WithField("blocks", blocks).Warn("history replay failed: ", err)
		return nil
	}
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, f := range feeds {
			if f.feed.Match(ev) {
				m.dispatch(f.kind, ev)
			}
		}
	}
	return nil
}

func (m *Monitor) stopClient() {
	if err := m.client.Stop(); err != nil {
		m.log.Warn("stream client stop after failed start: ", err)
	}
}

// Stop releases every feed subscription exactly once and stops the client.
// Stopping a stopped monitor does nothing.
func (m *Monitor) Stop() error {
	m.lock.Lock()
	switch m.State() {
	case StateStopped:
		m.lock.Unlock()
		return nil
	case StateStarting, StateStopping:
		m.lock.Unlock()
		return ErrTransitionInProgress
	}
	m.setState(StateStopping)
	subs := m.subs
	m.subs = nil
	m.lock.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
	err := m.client.Stop()
	m.setState(StateStopped)
	if err != nil {
		return errors.WithMessage(err, "stop stream client")
	}
	m.log.Info("monitor stopped")
	return nil
}

func (m *Monitor) dispatch(kind prototype.FeedKind, raw *prototype.RawFeedEvent) {
	state := m.State()
	if state != StateRunning && state != StateStarting {
		atomic.AddUint64(&m.dropped, 1)
		return
	}
	ev, err := Normalize(raw)
	if err != nil {
		atomic.AddUint64(&m.dropped, 1)
		m.log.WithField("feed", kind).Warn("dropping feed event: ", err)
		return
	}
	key := fmt.Sprintf("%s/%d/%s/%d", ev.Kind(), raw.BlockNum, raw.TrxId, raw.OpIndex)
	if seen, _ := m.seen.ContainsOrAdd(key, struct{}{}); seen {
		atomic.AddUint64(&m.duplicate, 1)
		return
	}
	atomic.AddUint64(&m.delivered, 1)
	m.bus.Publish(eventTopic, ev)
}

type observer struct {
	m    *Monitor
	kind prototype.FeedKind
}

func (o *observer) OnEvent(ev *prototype.RawFeedEvent) {
	o.m.dispatch(o.kind, ev)
}

func (o *observer) OnError(err error) {
	o.m.log.WithField("feed", o.kind).Warn("feed error: ", err)
}
