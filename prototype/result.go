package prototype

import "time"

type BroadcastResult struct {
	Success       bool      `json:"success"`
	TransactionId string    `json:"transaction_id,omitempty"`
	Error         string    `json:"error,omitempty"`
	Kind          ErrorKind `json:"-"`
}

func BroadcastOk(trxId string) *BroadcastResult {
	return &BroadcastResult{Success: true, TransactionId: trxId}
}

// BroadcastFailed turns err into a failed result. The message is passed
// through unchanged so callers can still match on it.
func BroadcastFailed(err error) *BroadcastResult {
	return &BroadcastResult{Success: false, Error: err.Error(), Kind: ClassifyError(err)}
}

type PublishResult struct {
	BroadcastResult
	Author   string   `json:"author,omitempty"`
	Permlink string   `json:"permlink,omitempty"`
	Url      string   `json:"url,omitempty"`
	Errors   []string `json:"errors,omitempty"`
}

type BatchVoteResult struct {
	Intent *VoteIntent `json:"intent"`
	BroadcastResult
}

// ConfirmationResult reports inclusion. Kind is KindConfirmationTimeout when
// the wait ran out before the transaction was seen.
type ConfirmationResult struct {
	Confirmed bool      `json:"confirmed"`
	BlockNum  uint32    `json:"block_num,omitempty"`
	TimedOut  bool      `json:"timed_out"`
	Kind      ErrorKind `json:"-"`
}

// RCStatus is computed fresh for each posting attempt and never cached.
type RCStatus struct {
	CanPost      bool    `json:"can_post"`
	RCPercentage float64 `json:"rc_percentage"`
	Message      string  `json:"message,omitempty"`
}

type VotePermission struct {
	CanVote     bool    `json:"can_vote"`
	VotingPower float64 `json:"voting_power"`
	Reason      string  `json:"reason,omitempty"`
}

type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

// VoteRecord is a vote as the chain reports it. Provisional records are local
// placeholders written right after a broadcast; they are replaced, never
// merged, by the next authoritative read.
type VoteRecord struct {
	Voter       string    `json:"voter"`
	Weight      int64     `json:"weight"`
	Rshares     int64     `json:"rshares"`
	Percent     int64     `json:"percent"`
	Reputation  int64     `json:"reputation"`
	Time        time.Time `json:"time"`
	Provisional bool      `json:"provisional,omitempty"`
}

// PercentWeight is the record's weight decoded back to a percent.
func (r *VoteRecord) PercentWeight() float64 {
	return BasisPointsToPercent(r.Percent)
}

// NewProvisionalStarVote builds the placeholder for a star rating: each star
// is 20% of a full vote.
func NewProvisionalStarVote(voter string, stars int, now time.Time) *VoteRecord {
	bp := int64(stars) * 20 * 100
	return &VoteRecord{
		Voter:       voter,
		Weight:      bp,
		Percent:     bp,
		Time:        now,
		Provisional: true,
	}
}
