package rpc

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/pkg/errors"
)

var ErrContentNotFound = errors.New("content not found")

func callInto(ctx context.Context, r iservices.INodeReader, method string, params interface{}, out interface{}) error {
	raw, err := r.Call(ctx, method, params)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s", method)
	}
	return nil
}

type activeVote struct {
	Voter      string              `json:"voter"`
	Weight     prototype.FlexInt64 `json:"weight"`
	Rshares    prototype.FlexInt64 `json:"rshares"`
	Percent    prototype.FlexInt64 `json:"percent"`
	Reputation prototype.FlexInt64 `json:"reputation"`
	Time       prototype.ChainTime `json:"time"`
}

func GetActiveVotes(ctx context.Context, r iservices.INodeReader, author, permlink string) ([]*prototype.VoteRecord, error) {
	var votes []activeVote
	if err := callInto(ctx, r, "condenser_api.get_active_votes", []interface{}{author, permlink}, &votes); err != nil {
		return nil, err
	}
	records := make([]*prototype.VoteRecord, 0, len(votes))
	for _, v := range votes {
		records = append(records, &prototype.VoteRecord{
			Voter:      v.Voter,
			Weight:     v.Weight.Int64(),
			Rshares:    v.Rshares.Int64(),
			Percent:    v.Percent.Int64(),
			Reputation: v.Reputation.Int64(),
			Time:       v.Time.Time,
		})
	}
	return records, nil
}

// Content is the subset of a post the broadcasters need.
type Content struct {
	Author         string              `json:"author"`
	Permlink       string              `json:"permlink"`
	ParentAuthor   string              `json:"parent_author"`
	ParentPermlink string              `json:"parent_permlink"`
	Category       string              `json:"category"`
	Title          string              `json:"title"`
	Body           string              `json:"body"`
	JsonMetadata   string              `json:"json_metadata"`
	Created        prototype.ChainTime `json:"created"`
}

// GetContent returns ErrContentNotFound when the node answers with an empty
// placeholder, which is how a missing post is reported.
func GetContent(ctx context.Context, r iservices.INodeReader, author, permlink string) (*Content, error) {
	var c Content
	if err := callInto(ctx, r, "condenser_api.get_content", []interface{}{author, permlink}, &c); err != nil {
		return nil, err
	}
	if c.Author == "" {
		return nil, ErrContentNotFound
	}
	return &c, nil
}

type ManabarJSON struct {
	CurrentMana    prototype.FlexInt64 `json:"current_mana"`
	LastUpdateTime int64               `json:"last_update_time"`
}

type Account struct {
	Name                   string              `json:"name"`
	VotingPower            int64               `json:"voting_power"`
	VotingManabar          ManabarJSON         `json:"voting_manabar"`
	VestingShares          string              `json:"vesting_shares"`
	DelegatedVestingShares string              `json:"delegated_vesting_shares"`
	ReceivedVestingShares  string              `json:"received_vesting_shares"`
	LastVoteTime           prototype.ChainTime `json:"last_vote_time"`
}

func GetAccounts(ctx context.Context, r iservices.INodeReader, names []string) ([]*Account, error) {
	var accounts []*Account
	if err := callInto(ctx, r, "condenser_api.get_accounts", []interface{}{names}, &accounts); err != nil {
		return nil, err
	}
	return accounts, nil
}

type RCAccount struct {
	Account   string              `json:"account"`
	RCManabar ManabarJSON         `json:"rc_manabar"`
	MaxRC     prototype.FlexInt64 `json:"max_rc"`
}

// FindRCAccounts reads resource credit bars through the rc_api plugin.
func FindRCAccounts(ctx context.Context, r iservices.INodeReader, names []string) ([]*RCAccount, error) {
	var out struct {
		RCAccounts []*RCAccount `json:"rc_accounts"`
	}
	if err := callInto(ctx, r, "rc_api.find_rc_accounts", map[string]interface{}{"accounts": names}, &out); err != nil {
		return nil, err
	}
	return out.RCAccounts, nil
}

// FindRCAccountsCondenser reads the same data through condenser_api, which
// nodes without the rc_api plugin still serve.
func FindRCAccountsCondenser(ctx context.Context, r iservices.INodeReader, names []string) ([]*RCAccount, error) {
	var out []*RCAccount
	if err := callInto(ctx, r, "condenser_api.find_rc_accounts", []interface{}{names}, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transaction statuses reported by transaction_status_api.
const (
	TrxStatusUnknown           = "unknown"
	TrxStatusMempool           = "within_mempool"
	TrxStatusReversible        = "within_reversible_block"
	TrxStatusIrreversible      = "within_irreversible_block"
	TrxStatusExpiredReversible = "expired_reversible"
	TrxStatusExpiredIrrev      = "expired_irreversible"
	TrxStatusTooOld            = "too_old"
)

type TransactionStatus struct {
	Status   string `json:"status"`
	BlockNum uint32 `json:"block_num"`
}

func FindTransaction(ctx context.Context, r iservices.INodeReader, trxId string) (*TransactionStatus, error) {
	var st TransactionStatus
	params := map[string]interface{}{"transaction_id": trxId}
	if err := callInto(ctx, r, "transaction_status_api.find_transaction", params, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

type Transaction struct {
	TransactionId string `json:"transaction_id"`
	BlockNum      uint32 `json:"block_num"`
}

// GetTransaction is the account_history based lookup. A transaction that has
// not been included yet comes back as a node error mentioning "Unknown
// Transaction"; IsUnknownTransaction detects it.
func GetTransaction(ctx context.Context, r iservices.INodeReader, trxId string) (*Transaction, error) {
	var trx Transaction
	if err := callInto(ctx, r, "condenser_api.get_transaction", []interface{}{trxId}, &trx); err != nil {
		return nil, err
	}
	return &trx, nil
}

func IsUnknownTransaction(err error) bool {
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return containsAny(strings.ToLower(rpcErr.Message), "unknown transaction")
}

type DynamicGlobalProperties struct {
	HeadBlockNumber          uint32              `json:"head_block_number"`
	LastIrreversibleBlockNum uint32              `json:"last_irreversible_block_num"`
	Time                     prototype.ChainTime `json:"time"`
}

func GetDynamicGlobalProperties(ctx context.Context, r iservices.INodeReader) (*DynamicGlobalProperties, error) {
	var props DynamicGlobalProperties
	if err := callInto(ctx, r, "condenser_api.get_dynamic_global_properties", []interface{}{}, &props); err != nil {
		return nil, err
	}
	return &props, nil
}

type OpInBlock struct {
	TrxId      string              `json:"trx_id"`
	Block      uint32              `json:"block"`
	TrxInBlock int                 `json:"trx_in_block"`
	OpInTrx    int                 `json:"op_in_trx"`
	Timestamp  string              `json:"timestamp"`
	Op         prototype.Operation `json:"op"`
}

func GetOpsInBlock(ctx context.Context, r iservices.INodeReader, blockNum uint32, onlyVirtual bool) ([]*OpInBlock, error) {
	var ops []*OpInBlock
	if err := callInto(ctx, r, "condenser_api.get_ops_in_block", []interface{}{blockNum, onlyVirtual}, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
