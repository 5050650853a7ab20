package stream

import (
	"encoding/json"
	"strings"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	mapset "github.com/deckarep/golang-set"
)

// matcher decides whether a raw operation belongs to a feed.
type matcher func(ev *prototype.RawFeedEvent) bool

type commentHead struct {
	ParentAuthor   string `json:"parent_author"`
	ParentPermlink string `json:"parent_permlink"`
	Author         string `json:"author"`
	JsonMetadata   string `json:"json_metadata"`
}

func decodeCommentHead(ev *prototype.RawFeedEvent) (*commentHead, bool) {
	if ev.OpName != prototype.OpNameComment {
		return nil, false
	}
	var head commentHead
	if err := json.Unmarshal(ev.Body, &head); err != nil {
		// let the monitor see and report malformed payloads
		return &commentHead{}, true
	}
	return &head, true
}

// metadataTags reads the tags array out of a json_metadata string. Anything
// unreadable yields no tags.
func metadataTags(raw string) []string {
	var meta struct {
		Tags []interface{} `json:"tags"`
	}
	if raw == "" || json.Unmarshal([]byte(raw), &meta) != nil {
		return nil
	}
	tags := make([]string, 0, len(meta.Tags))
	for _, t := range meta.Tags {
		if s, ok := t.(string); ok {
			tags = append(tags, s)
		}
	}
	return tags
}

func postsWithTags(tags []string) matcher {
	wanted := mapset.NewSet()
	for _, t := range prototype.NormalizeTags(tags) {
		wanted.Add(t)
	}
	return func(ev *prototype.RawFeedEvent) bool {
		head, ok := decodeCommentHead(ev)
		if !ok || head.ParentAuthor != "" {
			return false
		}
		if wanted.Cardinality() == 0 {
			return true
		}
		if wanted.Contains(strings.ToLower(head.ParentPermlink)) {
			return true
		}
		for _, t := range prototype.NormalizeTags(metadataTags(head.JsonMetadata)) {
			if wanted.Contains(t) {
				return true
			}
		}
		return false
	}
}

func votes() matcher {
	return func(ev *prototype.RawFeedEvent) bool {
		return ev.OpName == prototype.OpNameVote
	}
}

// commentsFor matches replies written by account or addressed to it. An
// empty account matches every reply.
func commentsFor(account string) matcher {
	return func(ev *prototype.RawFeedEvent) bool {
		head, ok := decodeCommentHead(ev)
		if !ok || head.ParentAuthor == "" {
			return false
		}
		return account == "" || head.ParentAuthor == account || head.Author == account
	}
}

type feed struct {
	session *Session
	match   matcher
}

func (f *feed) Subscribe(obs iservices.IFeedObserver) (iservices.ISubscription, error) {
	return f.session.attach(f.match, obs)
}

func (f *feed) Match(ev *prototype.RawFeedEvent) bool {
	return f.match(ev)
}
