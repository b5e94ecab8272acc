package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

// pumpRingCapacity bounds the recently-flagged ring buffer, grounded on
// original_source/backend/app/handlers/pump_extractor.py's bounded recent
// list.
const pumpRingCapacity = 200

// PumpSighting is one pump-suffixed mint's first observation.
type PumpSighting struct {
	Address   string
	Slot      uint64
	BlockTime *int64
	Source    string
}

// PumpHandler is the supplemented pump-token response handler from
// SPEC_FULL.md: beyond the pump-suffix flag MintHandler already emits per
// block, it tracks a rolling window of newly pump-flagged mints with
// first-seen slot, for a recent-pump-tokens query surface. Composes
// MintHandler rather than duplicating its detection logic.
type PumpHandler struct {
	mint *MintHandler

	mu         sync.Mutex
	seen       map[string]struct{}
	recent     []PumpSighting
	recentHead int
}

var _ Handler = (*PumpHandler)(nil)

func NewPumpHandler() *PumpHandler {
	return &PumpHandler{mint: NewMintHandler(), seen: map[string]struct{}{}}
}

func (h *PumpHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	env, err := h.mint.ProcessBlock(ctx, block)
	if err != nil || !env.Success {
		return env, err
	}
	result, ok := env.Data.(MintBlockResult)
	if !ok {
		return env, nil
	}

	h.mu.Lock()
	for _, op := range result.MintOperations {
		if !solana.IsPumpSuffixed(op.Address) {
			continue
		}
		if _, dup := h.seen[op.Address]; dup {
			continue
		}
		h.seen[op.Address] = struct{}{}
		h.append(PumpSighting{Address: op.Address, Slot: op.Slot, BlockTime: op.BlockTime, Source: op.SourceMarker})
	}
	h.mu.Unlock()

	return Ok[any](result), nil
}

// append must be called with h.mu held.
func (h *PumpHandler) append(s PumpSighting) {
	if len(h.recent) < pumpRingCapacity {
		h.recent = append(h.recent, s)
		return
	}
	h.recent[h.recentHead] = s
	h.recentHead = (h.recentHead + 1) % pumpRingCapacity
}

// RecentPumpTokens returns the ring buffer in chronological order.
func (h *PumpHandler) RecentPumpTokens() []PumpSighting {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.recent) < pumpRingCapacity {
		out := make([]PumpSighting, len(h.recent))
		copy(out, h.recent)
		return out
	}
	out := make([]PumpSighting, 0, pumpRingCapacity)
	out = append(out, h.recent[h.recentHead:]...)
	out = append(out, h.recent[:h.recentHead]...)
	return out
}

func (h *PumpHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("pump handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *PumpHandler) GetResults() any {
	return h.RecentPumpTokens()
}

func (h *PumpHandler) Reset() {
	h.mint.Reset()
	h.mu.Lock()
	h.seen = map[string]struct{}{}
	h.recent = nil
	h.recentHead = 0
	h.mu.Unlock()
}
