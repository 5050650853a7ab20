package prototype

import (
	"math"

	"github.com/pkg/errors"
)

// VoteIntent is a caller's request to vote. Weight is a percent in
// [-100, 100] with two decimals; zero removes an existing vote.
type VoteIntent struct {
	Voter    string  `json:"voter"`
	Author   string  `json:"author"`
	Permlink string  `json:"permlink"`
	Weight   float64 `json:"weight"`
}

func (v *VoteIntent) Validate() error {
	if v == nil {
		return ErrNpe
	}
	if math.IsNaN(v.Weight) || v.Weight > 100 || v.Weight < -100 {
		return errors.Errorf("vote weight %.2f must be between -100 and 100", v.Weight)
	}
	return v.ToOperation().Validate()
}

func (v *VoteIntent) ToOperation() *VoteOperation {
	return &VoteOperation{
		Voter:    v.Voter,
		Author:   v.Author,
		Permlink: v.Permlink,
		Weight:   PercentToBasisPoints(v.Weight),
	}
}

// PostIntent describes a top-level post, or a reply when ParentAuthor is set.
type PostIntent struct {
	Title          string                 `json:"title"`
	Body           string                 `json:"body"`
	Author         string                 `json:"author"`
	Tags           []string               `json:"tags"`
	ParentAuthor   string                 `json:"parent_author,omitempty"`
	ParentPermlink string                 `json:"parent_permlink,omitempty"`
	SubCommunity   string                 `json:"sub_community,omitempty"`
	Beneficiaries  []BeneficiaryRoute     `json:"beneficiaries,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

func (p *PostIntent) IsReply() bool {
	return p.ParentAuthor != ""
}

// PostTags is the tag list a post is published with. The community, when
// set, comes first and counts toward MaxTags.
func (p *PostIntent) PostTags() []string {
	if p.SubCommunity == "" {
		return NormalizeTags(p.Tags)
	}
	return NormalizeTags(append([]string{p.SubCommunity}, p.Tags...))
}

// CommentIntent is a reply to existing content.
type CommentIntent struct {
	Author         string                 `json:"author"`
	Body           string                 `json:"body"`
	ParentAuthor   string                 `json:"parent_author"`
	ParentPermlink string                 `json:"parent_permlink"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// UpdateIntent edits existing content. Empty Title keeps the current title; a
// nil Tags keeps the current tags.
type UpdateIntent struct {
	Author   string                 `json:"author"`
	Permlink string                 `json:"permlink"`
	Title    string                 `json:"title,omitempty"`
	Body     string                 `json:"body"`
	Tags     []string               `json:"tags,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type DeleteIntent struct {
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
}
