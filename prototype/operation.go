package prototype

import (
	"encoding/json"
	"math"

	"github.com/pkg/errors"
)

const (
	OpNameVote           = "vote"
	OpNameComment        = "comment"
	OpNameCommentOptions = "comment_options"
)

const (
	// Percent is the ledger's 100% in basis points.
	Percent           = 10000
	MaxTitleLength    = 255
	MaxBodyLength     = 65535
	MaxTags           = 5
	MaxPermlinkLength = 255
)

// KeyScope selects which authority signs a transaction.
type KeyScope string

const (
	KeyScopePosting KeyScope = "posting"
	KeyScopeActive  KeyScope = "active"
)

// Operation is a single ledger operation. It travels as the two element array
// ["name", {body}] and several operations can share one transaction.
type Operation struct {
	Name string
	Body interface{}
}

func (op Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{op.Name, op.Body})
}

func (op *Operation) UnmarshalJSON(data []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return errors.Errorf("operation must be a [name, body] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &op.Name); err != nil {
		return errors.WithMessage(err, "operation name")
	}
	op.Body = pair[1]
	return nil
}

type VoteOperation struct {
	Voter    string `json:"voter"`
	Author   string `json:"author"`
	Permlink string `json:"permlink"`
	Weight   int16  `json:"weight"`
}

func (m *VoteOperation) Validate() error {
	if m == nil {
		return ErrNpe
	}
	if err := ValidateAccountName(m.Voter); err != nil {
		return errors.WithMessage(err, "Voter error")
	}
	if err := ValidateAccountName(m.Author); err != nil {
		return errors.WithMessage(err, "Author error")
	}
	if len(m.Permlink) == 0 {
		return errors.New("permlink cant be null")
	}
	if m.Weight > Percent || m.Weight < -Percent {
		return errors.Errorf("weight %d out of range", m.Weight)
	}
	return nil
}

func (m *VoteOperation) AsOperation() Operation {
	return Operation{Name: OpNameVote, Body: m}
}

type CommentOperation struct {
	ParentAuthor   string `json:"parent_author"`
	ParentPermlink string `json:"parent_permlink"`
	Author         string `json:"author"`
	Permlink       string `json:"permlink"`
	Title          string `json:"title"`
	Body           string `json:"body"`
	JsonMetadata   string `json:"json_metadata"`
}

func (m *CommentOperation) Validate() error {
	if m == nil {
		return ErrNpe
	}
	if err := ValidateAccountName(m.Author); err != nil {
		return errors.WithMessage(err, "Author error")
	}
	if len(m.Permlink) == 0 || len(m.Permlink) > MaxPermlinkLength {
		return errors.New("permlink length invalid")
	}
	if len(m.ParentPermlink) == 0 {
		return errors.New("parent permlink cant be null")
	}
	if len(m.ParentAuthor) > 0 {
		if err := ValidateAccountName(m.ParentAuthor); err != nil {
			return errors.WithMessage(err, "ParentAuthor error")
		}
	}
	return nil
}

func (m *CommentOperation) AsOperation() Operation {
	return Operation{Name: OpNameComment, Body: m}
}

type BeneficiaryRoute struct {
	Account string `json:"account"`
	Weight  uint16 `json:"weight"`
}

// CommentOptionsExtension encodes the beneficiaries extension, variant 0 of the
// comment_options extension list.
type CommentOptionsExtension struct {
	Beneficiaries []BeneficiaryRoute
}

func (e CommentOptionsExtension) MarshalJSON() ([]byte, error) {
	return json.Marshal([]interface{}{0, map[string]interface{}{"beneficiaries": e.Beneficiaries}})
}

type CommentOptionsOperation struct {
	Author               string                    `json:"author"`
	Permlink             string                    `json:"permlink"`
	MaxAcceptedPayout    string                    `json:"max_accepted_payout"`
	PercentHbd           uint16                    `json:"percent_hbd"`
	AllowVotes           bool                      `json:"allow_votes"`
	AllowCurationRewards bool                      `json:"allow_curation_rewards"`
	Extensions           []CommentOptionsExtension `json:"extensions"`
}

func (m *CommentOptionsOperation) Validate() error {
	if m == nil {
		return ErrNpe
	}
	if err := ValidateAccountName(m.Author); err != nil {
		return errors.WithMessage(err, "Author error")
	}
	if m.PercentHbd > Percent {
		return errors.New("percent_hbd out of range")
	}
	var prev string
	for _, ext := range m.Extensions {
		total := 0
		for _, b := range ext.Beneficiaries {
			if err := ValidateAccountName(b.Account); err != nil {
				return errors.WithMessage(err, "Beneficiary error")
			}
			if b.Account <= prev {
				return errors.New("beneficiaries must be sorted by account and unique")
			}
			prev = b.Account
			total += int(b.Weight)
		}
		if total > Percent {
			return errors.New("beneficiary weights exceed 100%")
		}
	}
	return nil
}

func (m *CommentOptionsOperation) AsOperation() Operation {
	return Operation{Name: OpNameCommentOptions, Body: m}
}

// PercentToBasisPoints converts a percent weight (-100..100, two decimals) to
// the ledger's basis points.
func PercentToBasisPoints(percent float64) int16 {
	return int16(math.Round(percent * 100))
}

func BasisPointsToPercent(bp int64) float64 {
	return float64(bp) / 100
}
