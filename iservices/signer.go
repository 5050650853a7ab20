package iservices

import (
	"context"

	"github.com/coschain/hivebridge/prototype"
)

// ISigner signs a set of operations as one transaction and submits it to the
// network. All operations land atomically or not at all.
type ISigner interface {
	// Broadcast returns the transaction id accepted by the network.
	Broadcast(ctx context.Context, ops []prototype.Operation, scope prototype.KeyScope) (string, error)
}
