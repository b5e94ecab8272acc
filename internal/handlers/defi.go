package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/programs"
)

// DeFiOpKind is the closed classification of a DEX/lending instruction,
// per spec §4.9.
type DeFiOpKind string

const (
	DeFiSwap            DeFiOpKind = "swap"
	DeFiProvideLiquidity DeFiOpKind = "provide_liquidity"
	DeFiRemoveLiquidity  DeFiOpKind = "remove_liquidity"
	DeFiStake           DeFiOpKind = "stake"
	DeFiUnstake         DeFiOpKind = "unstake"
	DeFiBorrow          DeFiOpKind = "borrow"
	DeFiRepay           DeFiOpKind = "repay"
	DeFiUnknown         DeFiOpKind = "unknown"
)

var defiParsedTypes = map[string]DeFiOpKind{
	"swap":            DeFiSwap,
	"swapbasein":      DeFiSwap,
	"swapbaseout":     DeFiSwap,
	"addliquidity":    DeFiProvideLiquidity,
	"deposit":         DeFiProvideLiquidity,
	"removeliquidity": DeFiRemoveLiquidity,
	"withdraw":        DeFiRemoveLiquidity,
	"stake":           DeFiStake,
	"unstake":         DeFiUnstake,
	"borrow":          DeFiBorrow,
	"repay":           DeFiRepay,
}

// DeFiOperation is one classified DEX/lending instruction. VolumeEstimate is
// an interface-only field per spec §4.9: "volume extraction is specified as
// an interface only (implementations may return zero when price oracle is
// absent)" — this implementation always returns zero, since no price oracle
// is wired.
type DeFiOperation struct {
	Kind           DeFiOpKind
	ProgramID      string
	ProgramKind    solana.ProgramKind
	Accounts       []string
	VolumeEstimate uint64
}

// DeFiBlockResult is the DeFi extractor's per-block output.
type DeFiBlockResult struct {
	Slot       uint64
	Operations []DeFiOperation
	KindCounts map[DeFiOpKind]int
	Statistics Stats
}

// DeFiHandler implements the DeFi swaps auxiliary extractor (spec §4.9).
type DeFiHandler struct {
	stats *Stats
}

var _ Handler = (*DeFiHandler)(nil)

func NewDeFiHandler() *DeFiHandler { return &DeFiHandler{stats: NewStats()} }

func (h *DeFiHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("defi", h.stats, func() (Envelope[any], error) {
		return Ok[any](h.processBlock(block)), nil
	})
}

func (h *DeFiHandler) processBlock(block *solana.Block) DeFiBlockResult {
	h.stats.IncrementTotal()
	result := DeFiBlockResult{Slot: block.Slot, KindCounts: map[DeFiOpKind]int{}}
	if block == nil {
		h.stats.IncrementFailure()
		return result
	}

	for _, tx := range block.Transactions {
		if IsVote(tx) || tx.Meta.Failed() {
			h.stats.IncrementSkipped()
			continue
		}
		for _, ix := range tx.Message.Instructions {
			h.classify(ix, &result)
		}
		for _, group := range tx.Meta.InnerInstructions {
			for _, ix := range group.Instructions {
				h.classify(ix, &result)
			}
		}
	}

	h.stats.IncrementSuccess()
	result.Statistics = h.stats.Snapshot()
	return result
}

func (h *DeFiHandler) classify(ix solana.Instruction, result *DeFiBlockResult) {
	kind, known := programs.Classify(ix.ProgramID)
	if !known || (kind != solana.ProgramDEX && kind != solana.ProgramLending) {
		return
	}

	op := DeFiOperation{Kind: DeFiUnknown, ProgramID: ix.ProgramID, ProgramKind: kind, Accounts: ix.Accounts}
	if t := strings.ToLower(ix.InstructionType()); t != "" {
		if k, ok := defiParsedTypes[t]; ok {
			op.Kind = k
		}
	}
	if op.Kind == DeFiUnknown && kind == solana.ProgramDEX {
		op.Kind = DeFiSwap // DEX programs default to swap intent absent a parsed discriminator
	}
	if op.Kind == DeFiUnknown {
		h.stats.RecordInstructionError()
		return
	}

	result.Operations = append(result.Operations, op)
	result.KindCounts[op.Kind]++
}

func (h *DeFiHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("defi handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *DeFiHandler) GetResults() any { return h.stats.Snapshot() }
func (h *DeFiHandler) Reset()          { h.stats.Reset() }
