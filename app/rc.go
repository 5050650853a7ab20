package app

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/coschain/hivebridge/rpc"
	"github.com/coschain/hivebridge/utils"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	// MinPostingRCPercent is the resource credit level a post needs.
	MinPostingRCPercent = 5.0

	MinEstimatedRCCost = 1000
	RCCostPerByte      = 1.2
)

// RCHelper reads an account's resource credit bar.
type RCHelper interface {
	GetRCMana(ctx context.Context, username string) (*utils.Manabar, error)
}

// rcApiHelper reads through the rc_api plugin.
type rcApiHelper struct {
	reader iservices.INodeReader
}

func NewRCHelper(reader iservices.INodeReader) RCHelper {
	return &rcApiHelper{reader: reader}
}

func (h *rcApiHelper) GetRCMana(ctx context.Context, username string) (*utils.Manabar, error) {
	accounts, err := rpc.FindRCAccounts(ctx, h.reader, []string{username})
	if err != nil {
		return nil, err
	}
	return manabarOf(accounts, username)
}

func manabarOf(accounts []*rpc.RCAccount, username string) (*utils.Manabar, error) {
	for _, acc := range accounts {
		if acc.Account != username {
			continue
		}
		return &utils.Manabar{
			CurrentMana: acc.RCManabar.CurrentMana.Int64(),
			MaxMana:     acc.MaxRC.Int64(),
			LastUpdate:  time.Unix(acc.RCManabar.LastUpdateTime, 0),
		}, nil
	}
	return nil, errors.Errorf("no resource credit account for %s", username)
}

// ResourceCreditGuard decides whether an account can afford to post. It
// never caches: credits regenerate continuously and are spent destructively.
type ResourceCreditGuard struct {
	helper RCHelper
	reader iservices.INodeReader
	clock  utils.Clock
	log    *logrus.Logger
}

func NewResourceCreditGuard(helper RCHelper, reader iservices.INodeReader, clock utils.Clock, log *logrus.Logger) *ResourceCreditGuard {
	if clock == nil {
		clock = utils.SystemClock{}
	}
	return &ResourceCreditGuard{helper: helper, reader: reader, clock: clock, log: log}
}

// GetEstimatedRCCost is a linear pre-flight proxy for the bandwidth cost of a
// body of bodyLength bytes.
func GetEstimatedRCCost(bodyLength int) int64 {
	cost := int64(math.Round(float64(bodyLength) * RCCostPerByte))
	if cost < MinEstimatedRCCost {
		return MinEstimatedRCCost
	}
	return cost
}

func (g *ResourceCreditGuard) CanUserPost(ctx context.Context, username string) *prototype.RCStatus {
	now := g.clock.Now()
	bar, err := g.helper.GetRCMana(ctx, username)
	if err != nil {
		g.log.WithField("user", username).Warn("rc helper failed, reading raw rc account: ", err)
		bar, err = g.rawManabar(ctx, username)
	}
	if err != nil {
		g.log.WithField("user", username).Warn("resource credits unknown: ", err)
		return &prototype.RCStatus{
			CanPost: false,
			Message: fmt.Sprintf("Unable to check resource credits: %s", err.Error()),
		}
	}
	return statusFor(bar.PercentageAt(now))
}

func (g *ResourceCreditGuard) rawManabar(ctx context.Context, username string) (*utils.Manabar, error) {
	accounts, err := rpc.FindRCAccountsCondenser(ctx, g.reader, []string{username})
	if err != nil {
		return nil, err
	}
	return manabarOf(accounts, username)
}

func statusFor(pct float64) *prototype.RCStatus {
	if pct < MinPostingRCPercent {
		return &prototype.RCStatus{
			CanPost:      false,
			RCPercentage: pct,
			Message:      fmt.Sprintf("Insufficient resource credits (%.1f%%). Please wait for them to regenerate.", pct),
		}
	}
	return &prototype.RCStatus{CanPost: true, RCPercentage: pct}
}
