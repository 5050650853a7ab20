package iservices

import (
	"context"

	"github.com/coschain/hivebridge/prototype"
)

// IFeedObserver receives a feed's events in delivery order.
type IFeedObserver interface {
	OnEvent(ev *prototype.RawFeedEvent)
	OnError(err error)
}

type ISubscription interface {
	Unsubscribe()
}

type IFeed interface {
	Subscribe(obs IFeedObserver) (ISubscription, error)

	// Match reports whether ev belongs to the feed.
	Match(ev *prototype.RawFeedEvent) bool
}

// IStreamClient is the shared streaming session. Stop must fail while any
// subscription is still attached.
type IStreamClient interface {
	Start() error
	Stop() error
	OnPostsWithTags(tags []string) IFeed
	OnVotes() IFeed
	OnComments(account string) IFeed

	// Recent returns the raw events of the most recent blocks, oldest first.
	Recent(ctx context.Context, blocks uint32) ([]*prototype.RawFeedEvent, error)
}
