package myhttp

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/monitor"
	"github.com/coschain/hivebridge/prototype"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type idleClient struct{}

func (idleClient) Start() error                                  { return nil }
func (idleClient) Stop() error                                   { return nil }
func (idleClient) OnPostsWithTags(tags []string) iservices.IFeed { return nil }
func (idleClient) OnVotes() iservices.IFeed                      { return nil }
func (idleClient) OnComments(account string) iservices.IFeed     { return nil }

func (idleClient) Recent(ctx context.Context, blocks uint32) ([]*prototype.RawFeedEvent, error) {
	return nil, nil
}

func newTestRelay() *Relay {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewRelay("127.0.0.1:0", monitor.New(idleClient{}, log), log)
}

func TestRelay_HealthAndStatus(t *testing.T) {
	r := newTestRelay()
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	body, _ := ioutil.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	resp, err = http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	var status struct {
		State     string `json:"state"`
		Callbacks int    `json:"callbacks"`
		Clients   int    `json:"clients"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "stopped", status.State)
	assert.Equal(t, 1, status.Callbacks)
	assert.Equal(t, 0, status.Clients)
}

func TestRelay_StreamsEvents(t *testing.T) {
	r := newTestRelay()
	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req.WithContext(ctx))
	require.NoError(t, err)
	defer resp.Body.Close()

	for i := 0; i < 100 && r.Clients() == 0; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	require.Equal(t, 1, r.Clients())

	r.Publish(&prototype.NewVoteEvent{
		EventHeader: prototype.EventHeader{Author: "alice", Permlink: "hello"},
		Voter:       "bob",
		Weight:      10000,
	})

	reader := bufio.NewReader(resp.Body)
	var event, data string
	for event == "" || data == "" {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "event:") {
			event = strings.TrimPrefix(line, "event:")
		}
		if strings.HasPrefix(line, "data:") {
			data = strings.TrimPrefix(line, "data:")
		}
	}
	assert.Equal(t, "new_vote", event)
	assert.Contains(t, data, `"voter":"bob"`)
}

func TestRelay_SlowClientDropsInsteadOfBlocking(t *testing.T) {
	r := newTestRelay()
	_, ch := r.register()
	ev := &prototype.NewVoteEvent{Voter: "bob"}
	for i := 0; i < clientBuffer+10; i++ {
		r.Publish(ev)
	}
	assert.Len(t, ch, clientBuffer)
	assert.EqualValues(t, 10, r.dropped)
	require.NoError(t, r.Stop())
	assert.Equal(t, 0, r.Clients())
}
