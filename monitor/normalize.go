package monitor

import (
	"bytes"
	"encoding/json"

	"github.com/coschain/hivebridge/prototype"
	"github.com/pkg/errors"
)

var ErrMalformedEvent = errors.New("malformed feed event")

type rawVote struct {
	Voter    string              `json:"voter"`
	Author   string              `json:"author"`
	Permlink string              `json:"permlink"`
	Weight   prototype.FlexInt64 `json:"weight"`
}

type rawComment struct {
	ParentAuthor   string          `json:"parent_author"`
	ParentPermlink string          `json:"parent_permlink"`
	Author         string          `json:"author"`
	Permlink       string          `json:"permlink"`
	Title          string          `json:"title"`
	Body           string          `json:"body"`
	JsonMetadata   json.RawMessage `json:"json_metadata"`
}

// Normalize turns a raw feed operation into a ChainEvent. Any payload that
// cannot be decoded yields an error wrapping ErrMalformedEvent.
func Normalize(raw *prototype.RawFeedEvent) (prototype.ChainEvent, error) {
	if raw == nil {
		return nil, ErrMalformedEvent
	}
	ts, err := prototype.ParseChainTime(raw.Timestamp)
	if err != nil {
		return nil, errors.Wrapf(ErrMalformedEvent, "timestamp %q", raw.Timestamp)
	}
	header := prototype.EventHeader{
		Timestamp: ts,
		BlockNum:  raw.BlockNum,
		TrxId:     raw.TrxId,
		OpIndex:   raw.OpIndex,
	}

	switch raw.OpName {
	case prototype.OpNameVote:
		var v rawVote
		if err := json.Unmarshal(raw.Body, &v); err != nil {
			return nil, errors.Wrap(ErrMalformedEvent, err.Error())
		}
		if v.Voter == "" || v.Author == "" || v.Permlink == "" {
			return nil, errors.Wrap(ErrMalformedEvent, "vote without voter or target")
		}
		header.Author, header.Permlink = v.Author, v.Permlink
		return &prototype.NewVoteEvent{EventHeader: header, Voter: v.Voter, Weight: v.Weight.Int64()}, nil

	case prototype.OpNameComment:
		var c rawComment
		if err := json.Unmarshal(raw.Body, &c); err != nil {
			return nil, errors.Wrap(ErrMalformedEvent, err.Error())
		}
		if c.Author == "" || c.Permlink == "" {
			return nil, errors.Wrap(ErrMalformedEvent, "comment without author or permlink")
		}
		meta, err := decodeMetadata(c.JsonMetadata)
		if err != nil {
			return nil, errors.Wrapf(ErrMalformedEvent, "json_metadata: %v", err)
		}
		header.Author, header.Permlink = c.Author, c.Permlink
		if c.ParentAuthor == "" {
			return &prototype.NewPostEvent{
				EventHeader: header,
				Title:       c.Title,
				Body:        c.Body,
				Category:    c.ParentPermlink,
				Tags:        metadataTags(meta),
				Metadata:    meta,
			}, nil
		}
		return &prototype.NewCommentEvent{
			EventHeader:    header,
			ParentAuthor:   c.ParentAuthor,
			ParentPermlink: c.ParentPermlink,
			Body:           c.Body,
			Metadata:       meta,
		}, nil
	}
	return nil, errors.Wrapf(ErrMalformedEvent, "unexpected operation %q", raw.OpName)
}

// decodeMetadata accepts the metadata either as an object or as a string
// holding one. Empty metadata decodes to an empty map.
func decodeMetadata(raw json.RawMessage) (map[string]interface{}, error) {
	meta := map[string]interface{}{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return meta, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		if s == "" {
			return meta, nil
		}
		raw = []byte(s)
	}
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}

func metadataTags(meta map[string]interface{}) []string {
	list, _ := meta["tags"].([]interface{})
	tags := make([]string, 0, len(list))
	for _, t := range list {
		if s, ok := t.(string); ok && s != "" {
			tags = append(tags, s)
		}
	}
	return tags
}
