package prototype

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBasisPointRoundTrip(t *testing.T) {
	for w := -100.0; w <= 100.0; w += 0.37 {
		bp := PercentToBasisPoints(w)
		assert.Equal(t, int16(math.Round(w*100)), bp)
		assert.InDelta(t, w, BasisPointsToPercent(int64(bp)), 0.0051)
	}
	assert.Equal(t, int16(10000), PercentToBasisPoints(100))
	assert.Equal(t, int16(-10000), PercentToBasisPoints(-100))
	assert.Equal(t, int16(0), PercentToBasisPoints(0))
	assert.Equal(t, int16(5025), PercentToBasisPoints(50.25))
}

func TestVoteIntentValidate(t *testing.T) {
	ok := &VoteIntent{Voter: "alice", Author: "bob", Permlink: "hello", Weight: 50}
	assert.NoError(t, ok.Validate())

	bad := *ok
	bad.Weight = 100.5
	assert.Error(t, bad.Validate())

	bad.Weight = math.NaN()
	assert.Error(t, bad.Validate())

	bad.Weight = math.Inf(-1)
	assert.Error(t, bad.Validate())

	bad = *ok
	bad.Voter = "Al"
	assert.Error(t, bad.Validate())

	bad = *ok
	bad.Permlink = ""
	assert.Error(t, bad.Validate())
}

func TestOperationMarshal(t *testing.T) {
	op := (&VoteOperation{Voter: "alice", Author: "bob", Permlink: "p", Weight: 10000}).AsOperation()
	data, err := json.Marshal(op)
	require.NoError(t, err)
	assert.JSONEq(t, `["vote",{"voter":"alice","author":"bob","permlink":"p","weight":10000}]`, string(data))

	var back Operation
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, OpNameVote, back.Name)
}

func TestCommentOptionsExtensionMarshal(t *testing.T) {
	opts := &CommentOptionsOperation{
		Author:               "alice",
		Permlink:             "p",
		MaxAcceptedPayout:    "1000000.000 HBD",
		PercentHbd:           10000,
		AllowVotes:           true,
		AllowCurationRewards: true,
		Extensions: []CommentOptionsExtension{{Beneficiaries: []BeneficiaryRoute{
			{Account: "bob", Weight: 500},
			{Account: "carol", Weight: 300},
		}}},
	}
	require.NoError(t, opts.Validate())
	data, err := json.Marshal(opts)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"extensions":[[0,{"beneficiaries":[{"account":"bob","weight":500},{"account":"carol","weight":300}]}]]`)
}

func TestCommentOptionsRejectsUnsortedBeneficiaries(t *testing.T) {
	opts := &CommentOptionsOperation{Author: "alice", Permlink: "p", Extensions: []CommentOptionsExtension{{
		Beneficiaries: []BeneficiaryRoute{{Account: "carol", Weight: 1}, {Account: "bob", Weight: 1}},
	}}}
	assert.Error(t, opts.Validate())
}

func TestValidateAccountName(t *testing.T) {
	for _, name := range []string{"alice", "bob-smith", "abc.def", "a12"} {
		assert.NoError(t, ValidateAccountName(name), name)
	}
	for _, name := range []string{"", "ab", "Alice", "1abc", "abc-", "ab--cd", "abc.de", "averyveryverylongname"} {
		assert.Error(t, ValidateAccountName(name), name)
	}
}
