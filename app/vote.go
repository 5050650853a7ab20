package app

import (
	"context"
	"time"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/coschain/hivebridge/rpc"
	"github.com/coschain/hivebridge/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// MinVotingPower is the floor below which CanUserVote refuses.
	MinVotingPower = 1.0

	// RegenPercentPerDay is the voting power an account recovers per 24h.
	RegenPercentPerDay = 20.0

	// RecentVoteWindow is how close a previous vote must be for the
	// regeneration estimate to be skipped.
	RecentVoteWindow = time.Hour
)

type VoteBroadcaster struct {
	signer      iservices.ISigner
	reader      iservices.INodeReader
	clock       utils.Clock
	log         *logrus.Logger
	provisional *ProvisionalVotes
}

func NewVoteBroadcaster(signer iservices.ISigner, reader iservices.INodeReader, clock utils.Clock, log *logrus.Logger) *VoteBroadcaster {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &VoteBroadcaster{signer: signer, reader: reader, clock: clock, log: log}
}

// SetProvisionalStore enables optimistic star-vote placeholders.
func (v *VoteBroadcaster) SetProvisionalStore(store *ProvisionalVotes) {
	v.provisional = store
}

func (v *VoteBroadcaster) CastVote(ctx context.Context, intent *prototype.VoteIntent) *prototype.BroadcastResult {
	if err := intent.Validate(); err != nil {
		return prototype.BroadcastFailed(prototype.NewChainError(prototype.KindValidation, "", err.Error()))
	}
	op := intent.ToOperation()
	trxId, err := v.signer.Broadcast(ctx, []prototype.Operation{op.AsOperation()}, prototype.KeyScopePosting)
	if err != nil {
		v.log.WithFields(logrus.Fields{"voter": intent.Voter, "author": intent.Author, "permlink": intent.Permlink}).
			Warn("vote broadcast failed: ", err)
		return prototype.BroadcastFailed(err)
	}
	return prototype.BroadcastOk(trxId)
}

func (v *VoteBroadcaster) RemoveVote(ctx context.Context, voter, author, permlink string) *prototype.BroadcastResult {
	return v.CastVote(ctx, &prototype.VoteIntent{Voter: voter, Author: author, Permlink: permlink, Weight: 0})
}

// BatchVote signs every intent into one transaction. The chain applies it
// whole or not at all, so a failure is reported against every intent.
func (v *VoteBroadcaster) BatchVote(ctx context.Context, intents []*prototype.VoteIntent) []*prototype.BatchVoteResult {
	results := make([]*prototype.BatchVoteResult, len(intents))
	fail := func(err error) []*prototype.BatchVoteResult {
		failed := prototype.BroadcastFailed(err)
		for i, intent := range intents {
			results[i] = &prototype.BatchVoteResult{Intent: intent, BroadcastResult: *failed}
		}
		return results
	}
	if len(intents) == 0 {
		return results
	}

	ops := make([]prototype.Operation, 0, len(intents))
	for i, intent := range intents {
		if err := intent.Validate(); err != nil {
			return fail(prototype.NewChainError(prototype.KindValidation, "",
				errors.WithMessagef(err, "vote %d", i).Error()))
		}
		ops = append(ops, intent.ToOperation().AsOperation())
	}

	trxId, err := v.signer.Broadcast(ctx, ops, prototype.KeyScopePosting)
	if err != nil {
		v.log.WithField("votes", len(intents)).Warn("batch vote broadcast failed: ", err)
		return fail(err)
	}
	ok := prototype.BroadcastOk(trxId)
	for i, intent := range intents {
		results[i] = &prototype.BatchVoteResult{Intent: intent, BroadcastResult: *ok}
	}
	return results
}

// GetVotingPower returns the account's current voting power as 0..100.
func (v *VoteBroadcaster) GetVotingPower(ctx context.Context, username string) (float64, error) {
	accounts, err := rpc.GetAccounts(ctx, v.reader, []string{username})
	if err != nil {
		return 0, err
	}
	if len(accounts) == 0 {
		return 0, errors.Errorf("account %s not found", username)
	}
	acc := accounts[0]
	now := v.clock.Now()

	vests, err := utils.EffectiveVests(acc.VestingShares, acc.DelegatedVestingShares, acc.ReceivedVestingShares)
	if err == nil && vests > 0 && acc.VotingManabar.LastUpdateTime > 0 {
		bar := utils.Manabar{
			CurrentMana: acc.VotingManabar.CurrentMana.Int64(),
			MaxMana:     int64(vests * utils.VestsToMana),
			LastUpdate:  time.Unix(acc.VotingManabar.LastUpdateTime, 0),
		}
		return bar.PercentageAt(now), nil
	}
	// pre-manabar nodes only report voting_power in basis points
	return prototype.BasisPointsToPercent(acc.VotingPower), nil
}

// CalculateOptimalVoteWeight picks a vote weight (percent) from the voter's
// power. A nil lastVoteTime means no recent vote is known and one day of
// regeneration is assumed.
func (v *VoteBroadcaster) CalculateOptimalVoteWeight(ctx context.Context, username string, lastVoteTime *time.Time) float64 {
	power, err := v.GetVotingPower(ctx, username)
	if err != nil {
		v.log.WithField("user", username).Warn("voting power unavailable, assuming 0: ", err)
		power = 0
	}
	power += v.regenerationBonus(lastVoteTime)
	if power > 100 {
		power = 100
	}
	return WeightForPower(power)
}

func (v *VoteBroadcaster) regenerationBonus(lastVoteTime *time.Time) float64 {
	if lastVoteTime == nil {
		return RegenPercentPerDay
	}
	since := v.clock.Now().Sub(*lastVoteTime)
	if since < RecentVoteWindow {
		return 0
	}
	return since.Hours() / 24 * RegenPercentPerDay
}

// WeightForPower maps voting power onto the fixed weight tiers.
func WeightForPower(power float64) float64 {
	switch {
	case power > 80:
		return 100
	case power > 60:
		return 80
	case power > 40:
		return 60
	case power > 20:
		return 40
	default:
		return 20
	}
}

// CheckUserVote returns the voter's vote on the content, or nil when there is
// none or the list could not be read.
func (v *VoteBroadcaster) CheckUserVote(ctx context.Context, author, permlink, voter string) *prototype.VoteRecord {
	votes, err := rpc.GetActiveVotes(ctx, v.reader, author, permlink)
	if err != nil {
		v.log.WithFields(logrus.Fields{"author": author, "permlink": permlink}).Warn("active votes unavailable: ", err)
		return nil
	}
	for _, rec := range votes {
		if rec.Voter == voter {
			return rec
		}
	}
	return nil
}

func (v *VoteBroadcaster) CanUserVote(ctx context.Context, username string) *prototype.VotePermission {
	power, err := v.GetVotingPower(ctx, username)
	if err != nil {
		v.log.WithField("user", username).Warn("voting power unavailable: ", err)
		return &prototype.VotePermission{CanVote: false, Reason: "Unable to verify voting power"}
	}
	if power < MinVotingPower {
		return &prototype.VotePermission{
			CanVote:     false,
			VotingPower: power,
			Reason:      "Voting power too low. Please wait for it to regenerate.",
		}
	}
	return &prototype.VotePermission{CanVote: true, VotingPower: power}
}

// CastStarVote votes stars*20 percent and, on success, records a provisional
// placeholder until the chain reports the vote.
func (v *VoteBroadcaster) CastStarVote(ctx context.Context, voter, author, permlink string, stars int) *prototype.BroadcastResult {
	if stars < 0 || stars > 5 {
		return prototype.BroadcastFailed(prototype.NewChainError(prototype.KindValidation, "",
			"rating must be between 0 and 5 stars"))
	}
	res := v.CastVote(ctx, &prototype.VoteIntent{Voter: voter, Author: author, Permlink: permlink, Weight: float64(stars * 20)})
	if res.Success && v.provisional != nil {
		if err := v.provisional.Put(author, permlink, prototype.NewProvisionalStarVote(voter, stars, v.clock.Now())); err != nil {
			v.log.Warn("provisional vote not stored: ", err)
		}
	}
	return res
}

// ResolveUserVote prefers the chain's record. A placeholder is only returned
// while the chain has nothing, and is dropped once the chain catches up.
func (v *VoteBroadcaster) ResolveUserVote(ctx context.Context, author, permlink, voter string) *prototype.VoteRecord {
	if rec := v.CheckUserVote(ctx, author, permlink, voter); rec != nil {
		if v.provisional != nil {
			v.provisional.Drop(author, permlink, voter)
		}
		return rec
	}
	if v.provisional == nil {
		return nil
	}
	return v.provisional.Get(author, permlink, voter)
}
