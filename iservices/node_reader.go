package iservices

import (
	"context"
	"encoding/json"
)

// INodeReader performs a read-only call against a ledger node, e.g.
// "condenser_api.get_active_votes".
type INodeReader interface {
	Call(ctx context.Context, method string, params interface{}) (json.RawMessage, error)
}
