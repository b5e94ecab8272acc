package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

// ProgramStatsRecord is one program's accumulated activity, per spec §4.9:
// call counts, unique callers, instruction-type histogram, compute-unit
// totals/averages, and first/last-seen slots. Invokes is the
// program-interaction graph edge set: program A invokes program B when B
// appears among A's instruction accounts.
type ProgramStatsRecord struct {
	ProgramID         string
	CallCount         int
	UniqueCallers     map[string]struct{}
	InstructionTypes  map[string]int
	ComputeUnitsTotal uint64
	FirstSeenSlot     uint64
	LastSeenSlot      uint64
	Invokes           map[string]struct{}
}

func newProgramStatsRecord(programID string, slot uint64) *ProgramStatsRecord {
	return &ProgramStatsRecord{
		ProgramID:        programID,
		UniqueCallers:    map[string]struct{}{},
		InstructionTypes: map[string]int{},
		Invokes:          map[string]struct{}{},
		FirstSeenSlot:    slot,
		LastSeenSlot:     slot,
	}
}

// AverageComputeUnits returns the per-call mean compute units consumed.
func (r *ProgramStatsRecord) AverageComputeUnits() float64 {
	if r.CallCount == 0 {
		return 0
	}
	return float64(r.ComputeUnitsTotal) / float64(r.CallCount)
}

// ProgramStatsHandler implements the program stats auxiliary extractor
// (spec §4.9). Accumulates across the handler's lifetime, like
// WalletHandler: a program's profile is only meaningful in aggregate across
// many blocks.
type ProgramStatsHandler struct {
	stats *Stats

	mu       sync.Mutex
	programs map[string]*ProgramStatsRecord
}

var _ Handler = (*ProgramStatsHandler)(nil)

func NewProgramStatsHandler() *ProgramStatsHandler {
	return &ProgramStatsHandler{stats: NewStats(), programs: map[string]*ProgramStatsRecord{}}
}

func (h *ProgramStatsHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("program_stats", h.stats, func() (Envelope[any], error) {
		h.processBlock(block)
		return Ok[any](h.snapshot()), nil
	})
}

func (h *ProgramStatsHandler) processBlock(block *solana.Block) {
	h.stats.IncrementTotal()
	if block == nil {
		h.stats.IncrementFailure()
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, tx := range block.Transactions {
		if IsVote(tx) || tx.Meta.Failed() {
			h.stats.IncrementSkipped()
			continue
		}
		caller := ""
		if len(tx.Message.AccountKeys) > 0 {
			caller = tx.Message.AccountKeys[0] // fee payer, by convention the account at index 0
		}
		var computeShare uint64
		if tx.Meta.ComputeUnitsConsumed != nil && len(tx.Message.Instructions) > 0 {
			computeShare = *tx.Meta.ComputeUnitsConsumed / uint64(len(tx.Message.Instructions))
		}

		for _, ix := range tx.Message.Instructions {
			rec, ok := h.programs[ix.ProgramID]
			if !ok {
				rec = newProgramStatsRecord(ix.ProgramID, block.Slot)
				h.programs[ix.ProgramID] = rec
			}
			rec.CallCount++
			if caller != "" {
				rec.UniqueCallers[caller] = struct{}{}
			}
			if t := ix.InstructionType(); t != "" {
				rec.InstructionTypes[t]++
			}
			rec.ComputeUnitsTotal += computeShare
			if block.Slot < rec.FirstSeenSlot {
				rec.FirstSeenSlot = block.Slot
			}
			if block.Slot > rec.LastSeenSlot {
				rec.LastSeenSlot = block.Slot
			}
			for _, acct := range ix.Accounts {
				if acct != ix.ProgramID {
					rec.Invokes[acct] = struct{}{}
				}
			}
		}
	}

	h.stats.IncrementSuccess()
}

// ProgramStatsSnapshot is a read-only copy of one program's record.
type ProgramStatsSnapshot struct {
	ProgramID         string
	CallCount         int
	UniqueCallers     int
	InstructionTypes  map[string]int
	ComputeUnitsTotal uint64
	AverageCompute    float64
	FirstSeenSlot     uint64
	LastSeenSlot      uint64
	InvokesCount      int
}

func (h *ProgramStatsHandler) snapshot() []ProgramStatsSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]ProgramStatsSnapshot, 0, len(h.programs))
	for _, rec := range h.programs {
		types := make(map[string]int, len(rec.InstructionTypes))
		for k, v := range rec.InstructionTypes {
			types[k] = v
		}
		out = append(out, ProgramStatsSnapshot{
			ProgramID:         rec.ProgramID,
			CallCount:         rec.CallCount,
			UniqueCallers:     len(rec.UniqueCallers),
			InstructionTypes:  types,
			ComputeUnitsTotal: rec.ComputeUnitsTotal,
			AverageCompute:    rec.AverageComputeUnits(),
			FirstSeenSlot:     rec.FirstSeenSlot,
			LastSeenSlot:      rec.LastSeenSlot,
			InvokesCount:      len(rec.Invokes),
		})
	}
	return out
}

func (h *ProgramStatsHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("program stats handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *ProgramStatsHandler) GetResults() any { return h.snapshot() }

func (h *ProgramStatsHandler) Reset() {
	h.stats.Reset()
	h.mu.Lock()
	h.programs = map[string]*ProgramStatsRecord{}
	h.mu.Unlock()
}
