// Package stream is a block-polling streaming client. One Session is shared by
// every feed in the process.
package stream

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/coschain/hivebridge/rpc"
	"github.com/pkg/errors"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
)

var ErrSubscriptionsAttached = errors.New("stream session still has subscriptions attached")

const (
	DefaultPollInterval     = 3 * time.Second
	DefaultMaxBlocksPerPoll = 100
	DefaultHistoryBlocks    = 20
	// MaxHistoryBlocks is one hour of blocks.
	MaxHistoryBlocks = 1200
)

type Config struct {
	PollInterval time.Duration
	// Irreversible follows the last irreversible block instead of head.
	Irreversible     bool
	MaxBlocksPerPoll uint32
	CursorPath       string
}

type subscription struct {
	id      uint64
	match   matcher
	obs     iservices.IFeedObserver
	session *Session
	once    sync.Once
	closed  int32
}

func (s *subscription) Unsubscribe() {
	s.once.Do(func() {
		atomic.StoreInt32(&s.closed, 1)
		s.session.detach(s.id)
	})
}

func (s *subscription) active() bool {
	return atomic.LoadInt32(&s.closed) == 0
}

type Session struct {
	reader iservices.INodeReader
	cfg    Config
	log    *logrus.Logger
	cursor *Cursor

	lock    deadlock.Mutex
	subs    map[uint64]*subscription
	nextId  uint64
	running bool
	quit    chan struct{}
	done    chan struct{}

	last uint32
}

func NewSession(reader iservices.INodeReader, cfg Config, log *logrus.Logger) (*Session, error) {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxBlocksPerPoll == 0 {
		cfg.MaxBlocksPerPoll = DefaultMaxBlocksPerPoll
	}
	cursor, err := OpenCursor(cfg.CursorPath)
	if err != nil {
		return nil, errors.WithMessage(err, "open stream cursor")
	}
	last, err := cursor.Load()
	if err != nil {
		cursor.Close()
		return nil, errors.WithMessage(err, "load stream cursor")
	}
	return &Session{
		reader: reader,
		cfg:    cfg,
		log:    log,
		cursor: cursor,
		subs:   make(map[uint64]*subscription),
		last:   last,
	}, nil
}

func (s *Session) Start() error {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.running {
		return nil
	}
	s.running = true
	prev := s.done
	s.quit = make(chan struct{})
	s.done = make(chan struct{})
	go s.loop(prev, s.quit, s.done)
	s.log.WithFields(logrus.Fields{"from": s.LastBlock(), "cursor": s.cursor.FileName()}).Info("stream session started")
	return nil
}

// Stop halts polling. It refuses while subscriptions are attached so the
// connection is never torn down under a live feed. Stop does not wait for
// the poll in flight, so an observer may call it from OnEvent.
func (s *Session) Stop() error {
	s.lock.Lock()
	if len(s.subs) > 0 {
		s.lock.Unlock()
		return ErrSubscriptionsAttached
	}
	if !s.running {
		s.lock.Unlock()
		return nil
	}
	s.running = false
	close(s.quit)
	s.lock.Unlock()

	s.log.WithField("last", s.LastBlock()).Info("stream session stopped")
	return nil
}

// Close stops the session, waits for the polling goroutine to exit and
// releases the cursor. It must not be called from an observer.
func (s *Session) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.lock.Lock()
	done := s.done
	s.lock.Unlock()
	if done != nil {
		<-done
	}
	s.cursor.Close()
	return nil
}

func (s *Session) Running() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.running
}

func (s *Session) Subscribers() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return len(s.subs)
}

func (s *Session) LastBlock() uint32 {
	return atomic.LoadUint32(&s.last)
}

func (s *Session) OnPostsWithTags(tags []string) iservices.IFeed {
	return &feed{session: s, match: postsWithTags(tags)}
}

func (s *Session) OnVotes() iservices.IFeed {
	return &feed{session: s, match: votes()}
}

func (s *Session) OnComments(account string) iservices.IFeed {
	return &feed{session: s, match: commentsFor(account)}
}

func (s *Session) attach(match matcher, obs iservices.IFeedObserver) (iservices.ISubscription, error) {
	if obs == nil {
		return nil, prototype.ErrNpe
	}
	s.lock.Lock()
	defer s.lock.Unlock()
	s.nextId++
	sub := &subscription{id: s.nextId, match: match, obs: obs, session: s}
	s.subs[sub.id] = sub
	return sub, nil
}

func (s *Session) detach(id uint64) {
	s.lock.Lock()
	defer s.lock.Unlock()
	delete(s.subs, id)
}

// snapshot returns the current subscriptions in subscription order.
func (s *Session) snapshot() []*subscription {
	s.lock.Lock()
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.lock.Unlock()
	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	return subs
}

// loop polls until quit is closed. A restarted session's loop waits for the
// previous one to exit so two loops never poll at once.
func (s *Session) loop(prev, quit, done chan struct{}) {
	defer close(done)
	if prev != nil {
		<-prev
	}
	ticker := time.NewTicker(s.cfg.PollInterval)
	defer ticker.Stop()
	for {
		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			select {
			case <-quit:
				cancel()
			case <-ctx.Done():
			}
		}()
		if err := s.Poll(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("stream poll failed: ", err)
			s.broadcastError(err)
		}
		cancel()
		select {
		case <-ticker.C:
		case <-quit:
			return
		}
	}
}

func (s *Session) target(ctx context.Context) (uint32, error) {
	props, err := rpc.GetDynamicGlobalProperties(ctx, s.reader)
	if err != nil {
		return 0, err
	}
	if s.cfg.Irreversible {
		return props.LastIrreversibleBlockNum, nil
	}
	return props.HeadBlockNumber, nil
}

// Poll delivers every block after the cursor up to the current target, at
// most MaxBlocksPerPoll of them. A fresh session starts at the target
// without delivering history.
func (s *Session) Poll(ctx context.Context) error {
	target, err := s.target(ctx)
	if err != nil {
		return err
	}
	last := s.LastBlock()
	if last == 0 {
		atomic.StoreUint32(&s.last, target)
		return s.cursor.Save(target)
	}
	end := target
	if end > last+s.cfg.MaxBlocksPerPoll {
		end = last + s.cfg.MaxBlocksPerPoll
	}
	for n := last + 1; n <= end; n++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		events, err := s.blockEvents(ctx, n)
		if err != nil {
			return errors.WithMessagef(err, "block %d", n)
		}
		subs := s.snapshot()
		for _, ev := range events {
			for _, sub := range subs {
				if sub.active() && sub.match(ev) {
					sub.obs.OnEvent(ev)
				}
			}
		}
		atomic.StoreUint32(&s.last, n)
		if err := s.cursor.Save(n); err != nil {
			s.log.Warn("stream cursor not saved: ", err)
		}
	}
	return nil
}

// Recent returns the raw events of the last blocks blocks, oldest first.
// At most MaxHistoryBlocks are read.
func (s *Session) Recent(ctx context.Context, blocks uint32) ([]*prototype.RawFeedEvent, error) {
	if blocks > MaxHistoryBlocks {
		blocks = MaxHistoryBlocks
	}
	target, err := s.target(ctx)
	if err != nil {
		return nil, err
	}
	if blocks == 0 || target == 0 {
		return nil, nil
	}
	from := uint32(1)
	if target > blocks {
		from = target - blocks + 1
	}
	var out []*prototype.RawFeedEvent
	for n := from; n <= target; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		events, err := s.blockEvents(ctx, n)
		if err != nil {
			return nil, errors.WithMessagef(err, "block %d", n)
		}
		out = append(out, events...)
	}
	return out, nil
}

func (s *Session) blockEvents(ctx context.Context, blockNum uint32) ([]*prototype.RawFeedEvent, error) {
	ops, err := rpc.GetOpsInBlock(ctx, s.reader, blockNum, false)
	if err != nil {
		return nil, err
	}
	events := make([]*prototype.RawFeedEvent, 0, len(ops))
	for _, op := range ops {
		body, _ := op.Op.Body.(json.RawMessage)
		events = append(events, &prototype.RawFeedEvent{
			BlockNum:  op.Block,
			TrxId:     op.TrxId,
			OpIndex:   op.OpInTrx,
			Timestamp: op.Timestamp,
			OpName:    op.Op.Name,
			Body:      body,
		})
	}
	return events, nil
}

func (s *Session) broadcastError(err error) {
	for _, sub := range s.snapshot() {
		sub.obs.OnError(err)
	}
}
