package monitor

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"testing"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSub struct {
	feed *fakeFeed
	obs  iservices.IFeedObserver
}

func (s *fakeSub) Unsubscribe() {
	s.feed.client.Lock()
	defer s.feed.client.Unlock()
	s.feed.unsubscribes++
	s.feed.observers = nil
}

type fakeFeed struct {
	client       *fakeClient
	kind         prototype.FeedKind
	subscribes   int
	unsubscribes int
	observers    []iservices.IFeedObserver
	opName       string
	subscribeErr error
}

func (f *fakeFeed) Subscribe(obs iservices.IFeedObserver) (iservices.ISubscription, error) {
	f.client.Lock()
	defer f.client.Unlock()
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.subscribes++
	f.observers = append(f.observers, obs)
	return &fakeSub{feed: f, obs: obs}, nil
}

func (f *fakeFeed) Match(ev *prototype.RawFeedEvent) bool {
	return f.opName != "" && ev.OpName == f.opName
}

func (f *fakeFeed) emit(ev *prototype.RawFeedEvent) {
	f.client.Lock()
	observers := append([]iservices.IFeedObserver(nil), f.observers...)
	f.client.Unlock()
	for _, obs := range observers {
		obs.OnEvent(ev)
	}
}

type fakeClient struct {
	sync.Mutex
	starts, stops int
	feeds         map[prototype.FeedKind]*fakeFeed
	tags          []string
	account       string
	history       []*prototype.RawFeedEvent
	recentCalls   []uint32
}

func newFakeClient() *fakeClient {
	c := &fakeClient{feeds: map[prototype.FeedKind]*fakeFeed{}}
	c.feeds[prototype.FeedPosts] = &fakeFeed{client: c, kind: prototype.FeedPosts, opName: "comment"}
	c.feeds[prototype.FeedVotes] = &fakeFeed{client: c, kind: prototype.FeedVotes, opName: "vote"}
	c.feeds[prototype.FeedComments] = &fakeFeed{client: c, kind: prototype.FeedComments}
	return c
}

func (c *fakeClient) Recent(ctx context.Context, blocks uint32) ([]*prototype.RawFeedEvent, error) {
	c.recentCalls = append(c.recentCalls, blocks)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.history, nil
}

func (c *fakeClient) Start() error { c.starts++; return nil }
func (c *fakeClient) Stop() error  { c.stops++; return nil }

func (c *fakeClient) OnPostsWithTags(tags []string) iservices.IFeed {
	c.tags = tags
	return c.feeds[prototype.FeedPosts]
}

func (c *fakeClient) OnVotes() iservices.IFeed { return c.feeds[prototype.FeedVotes] }

func (c *fakeClient) OnComments(account string) iservices.IFeed {
	c.account = account
	return c.feeds[prototype.FeedComments]
}

func quietLog() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func voteEvent(trx string, voter string) *prototype.RawFeedEvent {
	body, _ := json.Marshal(map[string]interface{}{"voter": voter, "author": "alice", "permlink": "hello", "weight": 10000})
	return &prototype.RawFeedEvent{BlockNum: 10, TrxId: trx, Timestamp: "2024-01-01T00:00:00", OpName: "vote", Body: body}
}

func postEvent(trx string) *prototype.RawFeedEvent {
	body := `{"parent_author":"","parent_permlink":"travel","author":"alice","permlink":"trip","title":"Trip","body":"b",` +
		`"json_metadata":"{\"tags\":[\"travel\",\"food\"],\"app\":\"x\"}"}`
	return &prototype.RawFeedEvent{BlockNum: 11, TrxId: trx, Timestamp: "2024-01-01T00:00:03", OpName: "comment", Body: json.RawMessage(body)}
}

func TestMonitor_StartIsIdempotent(t *testing.T) {
	client := newFakeClient()
	m := New(client, quietLog())

	require.NoError(t, m.Start(Options{Tags: []string{"travel"}, Account: "alice"}))
	require.NoError(t, m.Start(Options{}))
	assert.Equal(t, StateRunning, m.State())
	for kind, f := range client.feeds {
		assert.Equal(t, 1, f.subscribes, "feed %s", kind)
	}
	assert.Equal(t, 1, client.starts)
	assert.Equal(t, []string{"travel"}, client.tags)
	assert.Equal(t, "alice", client.account)

	require.NoError(t, m.Stop())
	for kind, f := range client.feeds {
		assert.Equal(t, 1, f.unsubscribes, "feed %s", kind)
	}
	assert.Equal(t, 1, client.stops)

	// a second stop must not unsubscribe again
	require.NoError(t, m.Stop())
	for _, f := range client.feeds {
		assert.Equal(t, 1, f.unsubscribes)
	}

	// restart after stop creates fresh subscriptions
	require.NoError(t, m.Start(Options{}))
	assert.Equal(t, 2, client.feeds[prototype.FeedVotes].subscribes)
	require.NoError(t, m.Stop())
}

func TestMonitor_StopWhenNeverStarted(t *testing.T) {
	client := newFakeClient()
	m := New(client, quietLog())

	assert.NotPanics(t, func() { assert.NoError(t, m.Stop()) })
	for _, f := range client.feeds {
		assert.Equal(t, 0, f.unsubscribes)
	}
	assert.Equal(t, 0, client.stops)
}

func TestMonitor_CallbackIsolationAndOrder(t *testing.T) {
	client := newFakeClient()
	m := New(client, quietLog())

	var order []string
	var gotB prototype.ChainEvent
	m.AddCallback(func(ev prototype.ChainEvent) {
		order = append(order, "a")
		panic("callback A failed")
	})
	m.AddCallback(func(ev prototype.ChainEvent) {
		order = append(order, "b")
		gotB = ev
	})
	assert.Equal(t, 2, m.CallbackCount())

	require.NoError(t, m.Start(Options{}))
	client.feeds[prototype.FeedVotes].emit(voteEvent("t1", "bob"))

	assert.Equal(t, []string{"a", "b"}, order)
	require.NotNil(t, gotB)
	vote, ok := gotB.(*prototype.NewVoteEvent)
	require.True(t, ok)
	assert.Equal(t, "bob", vote.Voter)
	assert.EqualValues(t, 10000, vote.Weight)
	assert.Equal(t, "alice", vote.Author)
	assert.EqualValues(t, 1, m.Stats().Panics)
	require.NoError(t, m.Stop())
}

func TestMonitor_DeliveryOrderFollowsFeed(t *testing.T) {
	client := newFakeClient()
	m := New(client, quietLog())

	var voters []string
	m.AddCallback(func(ev prototype.ChainEvent) {
		if v, ok := ev.(*prototype.NewVoteEvent); ok {
			voters = append(voters, v.Voter)
		}
	})
	require.NoError(t, m.Start(Options{}))
	feed := client.feeds[prototype.FeedVotes]
	feed.emit(voteEvent("t1", "bob"))
	feed.emit(voteEvent("t2", "carol"))
	feed.emit(voteEvent("t3", "dave"))
	assert.Equal(t, []string{"bob", "carol", "dave"}, voters)
	require.NoError(t, m.Stop())
}

func TestMonitor_MalformedAndDuplicateDropped(t *testing.T) {
	client := newFakeClient()
	m := New(client, quietLog())

	var events []prototype.ChainEvent
	m.AddCallback(func(ev prototype.ChainEvent) { events = append(events, ev) })
	require.NoError(t, m.Start(Options{}))

	posts := client.feeds[prototype.FeedPosts]
	posts.emit(&prototype.RawFeedEvent{TrxId: "bad", Timestamp: "2024-01-01T00:00:00", OpName: "comment", Body: json.RawMessage(`{"author":`)})
	posts.emit(postEvent("t9"))
	posts.emit(postEvent("t9"))

	require.Len(t, events, 1)
	post, ok := events[0].(*prototype.NewPostEvent)
	require.True(t, ok)
	assert.Equal(t, "travel", post.Category)
	assert.Equal(t, []string{"travel", "food"}, post.Tags)
	assert.Equal(t, "x", post.Metadata["app"])

	stats := m.Stats()
	assert.EqualValues(t, 1, stats.Delivered)
	assert.EqualValues(t, 1, stats.Dropped)
	assert.EqualValues(t, 1, stats.Duplicate)
	require.NoError(t, m.Stop())
}

func TestMonitor_EventsAfterStopAreDropped(t *testing.T) {
	client := newFakeClient()
	m := New(client, quietLog())
	calls := 0
	m.AddCallback(func(ev prototype.ChainEvent) { calls++ })

	require.NoError(t, m.Start(Options{}))
	votes := client.feeds[prototype.FeedVotes]
	obs := votes.observers[0]
	require.NoError(t, m.Stop())

	obs.OnEvent(voteEvent("late", "bob"))
	assert.Equal(t, 0, calls)
}

func TestMonitor_ProcessHistoryBeforeLive(t *testing.T) {
	client := newFakeClient()
	client.history = []*prototype.RawFeedEvent{voteEvent("h1", "old"), postEvent("h2"), voteEvent("h3", "older")}
	m := New(client, quietLog())

	var seen []string
	m.AddCallback(func(ev prototype.ChainEvent) {
		switch e := ev.(type) {
		case *prototype.NewVoteEvent:
			seen = append(seen, "vote:"+e.Voter)
		case *prototype.NewPostEvent:
			seen = append(seen, "post:"+e.Permlink)
		}
	})
	require.NoError(t, m.Start(Options{ProcessHistory: true, HistoryBlocks: 5}))
	// one read for all three feeds
	assert.Equal(t, []uint32{5}, client.recentCalls)

	client.feeds[prototype.FeedVotes].emit(voteEvent("h1", "old"))
	client.feeds[prototype.FeedVotes].emit(voteEvent("l1", "new"))
	assert.Equal(t, []string{"vote:old", "post:trip", "vote:older", "vote:new"}, seen)
	require.NoError(t, m.Stop())
}

func TestMonitor_CancelledHistoryFailsStart(t *testing.T) {
	client := newFakeClient()
	client.history = []*prototype.RawFeedEvent{voteEvent("h1", "old")}
	m := New(client, quietLog())
	calls := 0
	m.AddCallback(func(ev prototype.ChainEvent) { calls++ })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := m.StartContext(ctx, Options{ProcessHistory: true, HistoryBlocks: 5})
	require.Error(t, err)
	assert.Equal(t, context.Canceled, errors.Cause(err))
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, 0, calls)
	assert.Equal(t, 1, client.stops)
	for _, f := range client.feeds {
		assert.Equal(t, 0, f.subscribes)
	}
}

func TestMonitor_SubscribeFailureRollsBack(t *testing.T) {
	client := newFakeClient()
	client.feeds[prototype.FeedComments].subscribeErr = errors.New("feed unavailable")
	m := New(client, quietLog())

	err := m.Start(Options{})
	require.Error(t, err)
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, 1, client.feeds[prototype.FeedPosts].unsubscribes)
	assert.Equal(t, 1, client.feeds[prototype.FeedVotes].unsubscribes)
	assert.Equal(t, 1, client.stops)
}

func TestMonitor_StopDuringStartIsRefused(t *testing.T) {
	m := New(newFakeClient(), quietLog())
	m.setState(StateStarting)
	assert.Equal(t, ErrTransitionInProgress, m.Stop())
	m.setState(StateStopping)
	assert.Equal(t, ErrTransitionInProgress, m.Start(Options{}))
}

func TestNormalize_Comment(t *testing.T) {
	raw := &prototype.RawFeedEvent{BlockNum: 3, TrxId: "c1", Timestamp: "2024-01-01T00:00:06", OpName: "comment",
		Body: json.RawMessage(`{"parent_author":"alice","parent_permlink":"trip","author":"bob","permlink":"re-trip","body":"hi","json_metadata":{"app":"y"}}`)}
	ev, err := Normalize(raw)
	require.NoError(t, err)
	c, ok := ev.(*prototype.NewCommentEvent)
	require.True(t, ok)
	assert.Equal(t, prototype.EventNewComment, c.Kind())
	assert.Equal(t, "alice", c.ParentAuthor)
	assert.Equal(t, "y", c.Metadata["app"])
	assert.Equal(t, 6, c.Timestamp.Second())

	_, err = Normalize(&prototype.RawFeedEvent{Timestamp: "2024-01-01T00:00:06", OpName: "transfer", Body: json.RawMessage(`{}`)})
	assert.Equal(t, ErrMalformedEvent, errors.Cause(err))
	_, err = Normalize(&prototype.RawFeedEvent{Timestamp: "yesterday", OpName: "vote", Body: json.RawMessage(`{}`)})
	assert.Equal(t, ErrMalformedEvent, errors.Cause(err))
}
