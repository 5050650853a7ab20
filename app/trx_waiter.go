package app

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/coschain/hivebridge/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	DefaultConfirmTimeout  = 60 * time.Second
	DefaultConfirmInterval = 3 * time.Second
)

type PollerConfig struct {
	Timeout  time.Duration
	Interval time.Duration
}

func DefaultPollerConfig() PollerConfig {
	return PollerConfig{Timeout: DefaultConfirmTimeout, Interval: DefaultConfirmInterval}
}

// TrxWaiter polls the node until a broadcast transaction shows up in a block.
// It prefers transaction_status_api and switches to condenser_api.get_transaction
// for good once the node reports the former as missing.
type TrxWaiter struct {
	reader   iservices.INodeReader
	log      *logrus.Logger
	fallback int32
}

func NewTrxWaiter(reader iservices.INodeReader, log *logrus.Logger) *TrxWaiter {
	return &TrxWaiter{reader: reader, log: log}
}

// WaitForTransaction blocks until the transaction is included, the timeout
// elapses, the node returns a terminal error or ctx is cancelled. A timeout is
// not an error: the result says TimedOut and the transaction's fate is
// unknown. Cancelling ctx stops polling and returns ctx.Err().
func (w *TrxWaiter) WaitForTransaction(ctx context.Context, trxId string, timeout, interval time.Duration) (*prototype.ConfirmationResult, error) {
	if timeout <= 0 {
		timeout = DefaultConfirmTimeout
	}
	if interval <= 0 {
		interval = DefaultConfirmInterval
	}
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if waitCtx.Err() != nil {
			return w.stopped(ctx, trxId)
		}
		confirmed, blockNum, err := w.poll(waitCtx, trxId)
		if err != nil {
			return &prototype.ConfirmationResult{}, err
		}
		if confirmed {
			return &prototype.ConfirmationResult{Confirmed: true, BlockNum: blockNum}, nil
		}
		select {
		case <-waitCtx.Done():
			return w.stopped(ctx, trxId)
		case <-ticker.C:
		}
	}
}

func (w *TrxWaiter) stopped(parent context.Context, trxId string) (*prototype.ConfirmationResult, error) {
	if err := parent.Err(); err != nil {
		return &prototype.ConfirmationResult{}, err
	}
	w.log.WithField("trx", trxId).Warn("transaction not confirmed before timeout")
	return &prototype.ConfirmationResult{TimedOut: true, Kind: prototype.KindConfirmationTimeout}, nil
}

// poll returns a non-nil error only when polling must stop.
func (w *TrxWaiter) poll(ctx context.Context, trxId string) (bool, uint32, error) {
	if atomic.LoadInt32(&w.fallback) == 0 {
		st, err := rpc.FindTransaction(ctx, w.reader, trxId)
		switch {
		case err == nil:
			return w.fromStatus(trxId, st)
		case rpc.IsMethodNotFound(err):
			w.log.Info("transaction_status_api unavailable, falling back to get_transaction")
			atomic.StoreInt32(&w.fallback, 1)
		case rpc.IsNodeError(err):
			return false, 0, err
		default:
			w.log.WithField("trx", trxId).Warn("transaction status poll failed: ", err)
			return false, 0, nil
		}
	}

	trx, err := rpc.GetTransaction(ctx, w.reader, trxId)
	switch {
	case err == nil:
		return true, trx.BlockNum, nil
	case rpc.IsUnknownTransaction(err):
		return false, 0, nil
	case rpc.IsNodeError(err):
		return false, 0, err
	default:
		w.log.WithField("trx", trxId).Warn("transaction lookup failed: ", err)
		return false, 0, nil
	}
}

func (w *TrxWaiter) fromStatus(trxId string, st *rpc.TransactionStatus) (bool, uint32, error) {
	switch st.Status {
	case rpc.TrxStatusReversible, rpc.TrxStatusIrreversible:
		return true, st.BlockNum, nil
	case rpc.TrxStatusExpiredReversible, rpc.TrxStatusExpiredIrrev, rpc.TrxStatusTooOld:
		return false, 0, errors.WithMessage(prototype.ErrTransactionExpired, st.Status)
	default:
		return false, 0, nil
	}
}

// ConfirmBroadcast waits for a successful broadcast to land. A failed result
// is returned as an error without polling.
func ConfirmBroadcast(ctx context.Context, w *TrxWaiter, res *prototype.BroadcastResult, cfg PollerConfig) (*prototype.ConfirmationResult, error) {
	if res == nil || !res.Success || res.TransactionId == "" {
		msg := "broadcast did not succeed"
		if res != nil && res.Error != "" {
			msg = res.Error
		}
		return &prototype.ConfirmationResult{}, errors.New(msg)
	}
	return w.WaitForTransaction(ctx, res.TransactionId, cfg.Timeout, cfg.Interval)
}
