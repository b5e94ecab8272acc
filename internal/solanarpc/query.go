package solanarpc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"golang.org/x/sync/errgroup"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

// requiredConfirmations is the slot distance used by
// WaitForBlockAvailability, per spec §4.5.
const requiredConfirmations = 150

// latestBlockStartOffset and latestBlockProbeCount fix the rearward-probe
// parameters of GetLatestAvailableBlock per spec §9 ("this spec fixes the
// start offset at 20 and the probe count at 20").
const (
	latestBlockStartOffset = 20
	latestBlockProbeCount  = 20
	latestBlockProbeDelay  = 500 * time.Millisecond
)

// Query is the high-level operation layer (C5), built over a Pool. Every
// operation is wrapped in the exponential backoff policy and only retries
// errors the Response Classifier marked retryable.
type Query struct {
	pool   *Pool
	policy RetryPolicy
}

// NewQuery builds a Query layer over pool using the default retry policy.
func NewQuery(pool *Pool) *Query {
	return &Query{pool: pool, policy: DefaultRetryPolicy()}
}

// WithPolicy returns a copy of q using the given retry policy, for callers
// that need a different cadence (e.g. get_program_transactions' slower
// inter-batch pacing).
func (q *Query) WithPolicy(policy RetryPolicy) *Query {
	return &Query{pool: q.pool, policy: policy}
}

func (q *Query) call(ctx context.Context, result any, method string, params ...any) error {
	return withRetry(ctx, q.policy, func(ctx context.Context) error {
		if err := q.pool.Acquire(ctx); err != nil {
			return err
		}
		defer q.pool.Release()

		client, err := q.pool.GetClient()
		if err != nil {
			return err
		}
		if err := client.Call(ctx, result, method, params...); err != nil {
			if rpcErr, ok := err.(*solana.RPCError); ok && rpcErr.Kind == solana.ErrRateLimited {
				q.pool.MarkRateLimited(client, time.Duration(rpcErr.RetryAfter*float64(time.Second)))
			}
			return err
		}
		return nil
	})
}

// GetSlot issues getSlot, tolerating both response shapes per spec §4.5/§9.
func (q *Query) GetSlot(ctx context.Context, commitment solana.Commitment) (uint64, error) {
	var raw rawSlotResult
	if err := q.call(ctx, &raw, "getSlot", map[string]any{"commitment": string(commitment)}); err != nil {
		return 0, err
	}
	return raw.slot()
}

// BlockParams configures a getBlock call, per spec §4.5.
type BlockParams struct {
	Commitment            solana.Commitment
	MaxSupportedTxVersion *int
}

func defaultBlockParams(commitment solana.Commitment) BlockParams {
	v := 0
	return BlockParams{Commitment: commitment, MaxSupportedTxVersion: &v}
}

// GetBlock issues getBlock for slot, returning (nil, nil) when the RPC
// result is null (the block was never produced), and retrying
// BlockNotAvailable / NodeUnhealthy / transport errors.
func (q *Query) GetBlock(ctx context.Context, slot uint64, params BlockParams) (*solana.Block, error) {
	reqParams := map[string]any{
		"encoding":           "json",
		"transactionDetails": "full",
		"rewards":            false,
	}
	if params.Commitment != "" {
		reqParams["commitment"] = string(params.Commitment)
	}
	if params.MaxSupportedTxVersion != nil {
		reqParams["maxSupportedTransactionVersion"] = *params.MaxSupportedTxVersion
	}

	var raw *wireBlock
	err := q.call(ctx, &raw, "getBlock", slot, reqParams)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	b := normalizeBlock(slot, raw)
	return &b, nil
}

// GetBlockWithRetry wraps GetBlock; if the block is still unavailable after
// the retry policy is exhausted, it reports a BlockNotAvailable error
// instead of returning a silent nil, per spec §4.5.
func (q *Query) GetBlockWithRetry(ctx context.Context, slot uint64, commitment solana.Commitment) (*solana.Block, error) {
	block, err := q.GetBlock(ctx, slot, defaultBlockParams(commitment))
	if err != nil {
		return nil, err
	}
	if block == nil {
		return nil, &solana.RPCError{Kind: solana.ErrBlockNotAvailable, Slot: slot, Message: "block not available after retry"}
	}
	return block, nil
}

// WaitForBlockAvailability polls getSlot until current_slot - slot reaches
// requiredConfirmations or maxWait elapses.
func (q *Query) WaitForBlockAvailability(ctx context.Context, slot uint64, maxWait time.Duration) (bool, error) {
	if maxWait <= 0 {
		maxWait = 10 * time.Second
	}
	deadline := time.Now().Add(maxWait)
	for {
		current, err := q.GetSlot(ctx, solana.CommitmentConfirmed)
		if err != nil {
			return false, err
		}
		if current >= slot+requiredConfirmations {
			return true, nil
		}
		if time.Now().After(deadline) {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

// GetLatestAvailableBlock fetches the tip slot, then walks backward from
// slot-20 in steps of 1, returning the first slot that actually produces a
// block. It gives up after 20 attempts. The tip is frequently not yet
// distributed to every endpoint; the rearward probe trades freshness for
// availability (spec §4.5).
func (q *Query) GetLatestAvailableBlock(ctx context.Context) (*solana.Block, error) {
	tip, err := q.GetSlot(ctx, solana.CommitmentFinalized)
	if err != nil {
		return nil, err
	}

	start := tip
	if start > latestBlockStartOffset {
		start -= latestBlockStartOffset
	} else {
		start = 0
	}

	for attempt := 0; attempt < latestBlockProbeCount; attempt++ {
		if uint64(attempt) > start {
			break // underflowed past zero
		}
		slot := start - uint64(attempt)

		block, err := q.GetBlock(ctx, slot, defaultBlockParams(solana.CommitmentFinalized))
		if err != nil {
			log.Debug("get_latest_available_block: probe failed", "slot", slot, "err", err)
		} else if block != nil {
			return block, nil
		}

		if attempt < latestBlockProbeCount-1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(latestBlockProbeDelay):
			}
		}
	}
	return nil, fmt.Errorf("solanarpc: no available block found in %d rearward probes from tip %d", latestBlockProbeCount, tip)
}

// BlockOrError is one entry of GetMultipleBlocks' result: exceptions are
// captured per-slot rather than aborting the whole call, per spec §4.5.
type BlockOrError struct {
	Slot    uint64
	Block   *solana.Block
	Success bool
	Err     error
}

// GetMultipleBlocks emits blocks for [start, end] in parallel batches of
// batchSize.
func (q *Query) GetMultipleBlocks(ctx context.Context, start, end uint64, batchSize int, commitment solana.Commitment) []BlockOrError {
	if batchSize <= 0 {
		batchSize = 10
	}

	var results []BlockOrError
	for batchStart := start; batchStart <= end; batchStart += uint64(batchSize) {
		batchEnd := batchStart + uint64(batchSize) - 1
		if batchEnd > end {
			batchEnd = end
		}

		batch := make([]BlockOrError, batchEnd-batchStart+1)
		g, gctx := errgroup.WithContext(ctx)
		for i := batchStart; i <= batchEnd; i++ {
			i := i
			idx := int(i - batchStart)
			g.Go(func() error {
				block, err := q.GetBlock(gctx, i, defaultBlockParams(commitment))
				if err != nil {
					batch[idx] = BlockOrError{Slot: i, Success: false, Err: err}
					return nil // captured per-slot, never aborts the batch
				}
				batch[idx] = BlockOrError{Slot: i, Block: block, Success: true}
				return nil
			})
		}
		_ = g.Wait() // errors are always captured per-slot above, never propagated
		results = append(results, batch...)
	}
	return results
}

// SignaturesParams constrains GetSignaturesForAddress, per spec §4.5.
type SignaturesParams struct {
	Before  string
	Until   string
	MinSlot *uint64
	MaxSlot *uint64
	Limit   int
}

// SignatureInfo is one entry of getSignaturesForAddress.
type SignatureInfo struct {
	Signature string
	Slot      uint64
	Err       any
	BlockTime *int64
}

func (q *Query) GetSignaturesForAddress(ctx context.Context, address string, params SignaturesParams) ([]SignatureInfo, error) {
	opts := map[string]any{}
	if params.Before != "" {
		opts["before"] = params.Before
	}
	if params.Until != "" {
		opts["until"] = params.Until
	}
	if params.Limit > 0 {
		opts["limit"] = params.Limit
	}

	var raw []struct {
		Signature string          `json:"signature"`
		Slot      uint64          `json:"slot"`
		Err       json.RawMessage `json:"err"`
		BlockTime *int64          `json:"blockTime"`
	}
	if err := q.call(ctx, &raw, "getSignaturesForAddress", address, opts); err != nil {
		return nil, err
	}

	out := make([]SignatureInfo, 0, len(raw))
	for _, r := range raw {
		info := SignatureInfo{Signature: r.Signature, Slot: r.Slot, BlockTime: r.BlockTime, Err: decodeErr(r.Err)}
		if params.MinSlot != nil && info.Slot < *params.MinSlot {
			continue
		}
		if params.MaxSlot != nil && info.Slot > *params.MaxSlot {
			continue
		}
		out = append(out, info)
	}
	return out, nil
}

// programTransactionBatchDelay is the inter-batch delay used by
// GetProgramTransactions to avoid tripping rate limits, per spec §4.5.
const programTransactionBatchDelay = 5 * time.Second

// GetProgramTransactions paginates over a program's signatures, then issues
// getTransaction in batches with an inter-batch delay.
func (q *Query) GetProgramTransactions(ctx context.Context, programID string, params SignaturesParams, batchSize int) ([]solana.Tx, error) {
	sigs, err := q.GetSignaturesForAddress(ctx, programID, params)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = 10
	}

	var txs []solana.Tx
	for i := 0; i < len(sigs); i += batchSize {
		end := i + batchSize
		if end > len(sigs) {
			end = len(sigs)
		}
		batch := sigs[i:end]

		g, gctx := errgroup.WithContext(ctx)
		batchTxs := make([]*solana.Tx, len(batch))
		for j, sig := range batch {
			j, sig := j, sig
			g.Go(func() error {
				tx, err := q.getTransaction(gctx, sig.Signature)
				if err != nil {
					log.Debug("get_program_transactions: tx fetch failed", "sig", sig.Signature, "err", err)
					return nil
				}
				batchTxs[j] = tx
				return nil
			})
		}
		_ = g.Wait()
		for _, tx := range batchTxs {
			if tx != nil {
				txs = append(txs, *tx)
			}
		}

		if end < len(sigs) {
			select {
			case <-ctx.Done():
				return txs, ctx.Err()
			case <-time.After(programTransactionBatchDelay):
			}
		}
	}
	return txs, nil
}

func (q *Query) getTransaction(ctx context.Context, signature string) (*solana.Tx, error) {
	var raw *wireTxWrapper
	err := q.call(ctx, &raw, "getTransaction", signature, map[string]any{
		"encoding":                       "json",
		"maxSupportedTransactionVersion": 0,
	})
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	tx := normalizeTx(*raw)
	return &tx, nil
}
