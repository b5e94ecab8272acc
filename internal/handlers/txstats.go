package handlers

import (
	"context"
	"fmt"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

// TxStatsBlockResult is the transaction stats handler's per-block summary,
// distinct from ProgramStatsHandler's per-program rollup (SPEC_FULL.md
// supplemented feature, grounded on
// original_source/backend/app/handlers/transaction_stats_handler.py).
type TxStatsBlockResult struct {
	Slot               uint64
	TotalTransactions  int
	VoteTransactions   int
	FailedTransactions int
	InstructionCount   int
	ComputeUnitsTotal  uint64
}

// TxStatsHandler implements the lightweight per-block transaction summary
// supplemented from original_source/ beyond spec.md's distillation.
type TxStatsHandler struct {
	stats *Stats
}

var _ Handler = (*TxStatsHandler)(nil)

func NewTxStatsHandler() *TxStatsHandler { return &TxStatsHandler{stats: NewStats()} }

func (h *TxStatsHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("tx_stats", h.stats, func() (Envelope[any], error) {
		return Ok[any](h.processBlock(block)), nil
	})
}

func (h *TxStatsHandler) processBlock(block *solana.Block) TxStatsBlockResult {
	h.stats.IncrementTotal()
	result := TxStatsBlockResult{}
	if block == nil {
		h.stats.IncrementFailure()
		return result
	}
	result.Slot = block.Slot

	for _, tx := range block.Transactions {
		result.TotalTransactions++
		if IsVote(tx) {
			result.VoteTransactions++
		}
		if tx.Meta.Failed() {
			result.FailedTransactions++
		}
		result.InstructionCount += len(tx.Message.Instructions)
		for _, group := range tx.Meta.InnerInstructions {
			result.InstructionCount += len(group.Instructions)
		}
		if tx.Meta.ComputeUnitsConsumed != nil {
			result.ComputeUnitsTotal += *tx.Meta.ComputeUnitsConsumed
		}
	}

	h.stats.IncrementSuccess()
	return result
}

func (h *TxStatsHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("tx stats handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *TxStatsHandler) GetResults() any { return h.stats.Snapshot() }
func (h *TxStatsHandler) Reset()          { h.stats.Reset() }
