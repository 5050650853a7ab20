package prototype

import "encoding/json"

// FeedKind names one of the monitor's logical feeds.
type FeedKind int

const (
	FeedPosts FeedKind = iota
	FeedVotes
	FeedComments
)

func (f FeedKind) String() string {
	switch f {
	case FeedPosts:
		return "posts"
	case FeedVotes:
		return "votes"
	case FeedComments:
		return "comments"
	}
	return "unknown"
}

// RawFeedEvent is an operation as a streaming client delivers it, before
// normalization. Body is the operation body exactly as the node returned it.
type RawFeedEvent struct {
	BlockNum  uint32          `json:"block"`
	TrxId     string          `json:"trx_id"`
	OpIndex   int             `json:"op_in_trx"`
	Timestamp string          `json:"timestamp"`
	OpName    string          `json:"op_name"`
	Body      json.RawMessage `json:"body"`
}

type EventKind string

const (
	EventNewPost    EventKind = "new_post"
	EventNewVote    EventKind = "new_vote"
	EventNewComment EventKind = "new_comment"
)

// ChainEvent is the closed set of normalized events: *NewPostEvent,
// *NewVoteEvent and *NewCommentEvent.
type ChainEvent interface {
	Kind() EventKind
	Header() *EventHeader
}

type EventHeader struct {
	Author    string    `json:"author"`
	Permlink  string    `json:"permlink"`
	Timestamp ChainTime `json:"timestamp"`
	BlockNum  uint32    `json:"block_num"`
	TrxId     string    `json:"trx_id,omitempty"`
	OpIndex   int       `json:"op_index"`
}

type NewPostEvent struct {
	EventHeader
	Title    string                 `json:"title"`
	Body     string                 `json:"body"`
	Category string                 `json:"category"`
	Tags     []string               `json:"tags"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

func (e *NewPostEvent) Kind() EventKind      { return EventNewPost }
func (e *NewPostEvent) Header() *EventHeader { return &e.EventHeader }

type NewVoteEvent struct {
	EventHeader
	Voter  string `json:"voter"`
	Weight int64  `json:"weight"`
}

func (e *NewVoteEvent) Kind() EventKind      { return EventNewVote }
func (e *NewVoteEvent) Header() *EventHeader { return &e.EventHeader }

type NewCommentEvent struct {
	EventHeader
	ParentAuthor   string                 `json:"parent_author"`
	ParentPermlink string                 `json:"parent_permlink"`
	Body           string                 `json:"body"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

func (e *NewCommentEvent) Kind() EventKind      { return EventNewComment }
func (e *NewCommentEvent) Header() *EventHeader { return &e.EventHeader }
