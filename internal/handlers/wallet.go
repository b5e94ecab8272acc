package handlers

import (
	"context"
	"fmt"
	"sync"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana/programs"
)

// ActivityCategory buckets a wallet's instruction into one of the histogram
// categories spec §4.9/SPEC_FULL.md calls for.
type ActivityCategory string

const (
	ActivityMint       ActivityCategory = "mint"
	ActivityTransfer   ActivityCategory = "transfer"
	ActivitySwap       ActivityCategory = "swap"
	ActivityNFT        ActivityCategory = "nft"
	ActivityGovernance ActivityCategory = "governance"
	ActivityStake      ActivityCategory = "stake"
	ActivityOther      ActivityCategory = "other"
)

func categoryFor(kind solana.ProgramKind) ActivityCategory {
	switch kind {
	case solana.ProgramToken, solana.ProgramToken2022:
		return ActivityTransfer
	case solana.ProgramDEX, solana.ProgramLending:
		return ActivitySwap
	case solana.ProgramMetadata, solana.ProgramNFTMarketplace:
		return ActivityNFT
	case solana.ProgramGovernance:
		return ActivityGovernance
	case solana.ProgramVote, solana.ProgramStake:
		return ActivityStake
	default:
		return ActivityOther
	}
}

// walletRingCapacity bounds the recent-activity ring buffer kept per
// wallet, supplementing spec §4.9 per original_source/wallet_extractor.py's
// bounded recent-activity window.
const walletRingCapacity = 50

// ActivityEvent is one ring-buffer entry: a wallet touched by one
// instruction in one slot.
type ActivityEvent struct {
	Slot      uint64
	Category  ActivityCategory
	ProgramID string
}

// WalletRecord is the per-address accumulator: a category histogram plus a
// bounded ring buffer of recent events (SPEC_FULL.md supplemented feature,
// grounded on original_source/backend/app/handlers/wallet_extractor.py).
type WalletRecord struct {
	Address    string
	Histogram  map[ActivityCategory]int
	recent     []ActivityEvent
	recentHead int
}

func newWalletRecord(address string) *WalletRecord {
	return &WalletRecord{Address: address, Histogram: map[ActivityCategory]int{}}
}

func (w *WalletRecord) record(ev ActivityEvent) {
	w.Histogram[ev.Category]++
	if len(w.recent) < walletRingCapacity {
		w.recent = append(w.recent, ev)
		return
	}
	w.recent[w.recentHead] = ev
	w.recentHead = (w.recentHead + 1) % walletRingCapacity
}

// RecentActivity returns the ring buffer contents in chronological order
// (oldest first).
func (w *WalletRecord) RecentActivity() []ActivityEvent {
	if len(w.recent) < walletRingCapacity {
		out := make([]ActivityEvent, len(w.recent))
		copy(out, w.recent)
		return out
	}
	out := make([]ActivityEvent, 0, walletRingCapacity)
	out = append(out, w.recent[w.recentHead:]...)
	out = append(out, w.recent[:w.recentHead]...)
	return out
}

// WalletHandler implements the wallet activity auxiliary extractor (spec
// §4.9, underspecified there and filled in from original_source/ per
// SPEC_FULL.md): per-address operation histograms plus a bounded recent
// window, accumulated across the handler's lifetime rather than reset per
// block, since a wallet's profile is meaningful only in aggregate.
type WalletHandler struct {
	stats *Stats

	mu       sync.Mutex
	wallets  map[string]*WalletRecord
}

var _ Handler = (*WalletHandler)(nil)

func NewWalletHandler() *WalletHandler {
	return &WalletHandler{stats: NewStats(), wallets: map[string]*WalletRecord{}}
}

func (h *WalletHandler) ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error) {
	return SafeProcessBlock("wallet", h.stats, func() (Envelope[any], error) {
		h.processBlock(block)
		return Ok[any](h.snapshot()), nil
	})
}

func (h *WalletHandler) processBlock(block *solana.Block) {
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
		for _, ix := range tx.Message.Instructions {
			kind, known := programs.Classify(ix.ProgramID)
			if !known {
				continue
			}
			category := categoryFor(kind)
			for _, addr := range ix.Accounts {
				rec, ok := h.wallets[addr]
				if !ok {
					rec = newWalletRecord(addr)
					h.wallets[addr] = rec
				}
				rec.record(ActivityEvent{Slot: block.Slot, Category: category, ProgramID: ix.ProgramID})
			}
		}
	}

	h.stats.IncrementSuccess()
}

// WalletSnapshot is a read-only copy of one wallet's accumulated record.
type WalletSnapshot struct {
	Address   string
	Histogram map[ActivityCategory]int
	Recent    []ActivityEvent
}

func (h *WalletHandler) snapshot() []WalletSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]WalletSnapshot, 0, len(h.wallets))
	for _, rec := range h.wallets {
		hist := make(map[ActivityCategory]int, len(rec.Histogram))
		for k, v := range rec.Histogram {
			hist[k] = v
		}
		out = append(out, WalletSnapshot{Address: rec.Address, Histogram: hist, Recent: rec.RecentActivity()})
	}
	return out
}

// Lookup returns a snapshot of one wallet's activity, or false if unseen.
func (h *WalletHandler) Lookup(address string) (WalletSnapshot, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.wallets[address]
	if !ok {
		return WalletSnapshot{}, false
	}
	hist := make(map[ActivityCategory]int, len(rec.Histogram))
	for k, v := range rec.Histogram {
		hist[k] = v
	}
	return WalletSnapshot{Address: rec.Address, Histogram: hist, Recent: rec.RecentActivity()}, true
}

func (h *WalletHandler) ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error) {
	block, ok := rpcResult.(*solana.Block)
	if !ok {
		return Fail[any](fmt.Errorf("wallet handler: expected *solana.Block, got %T", rpcResult)), nil
	}
	return h.ProcessBlock(ctx, block)
}

func (h *WalletHandler) GetResults() any { return h.snapshot() }

func (h *WalletHandler) Reset() {
	h.stats.Reset()
	h.mu.Lock()
	h.wallets = map[string]*WalletRecord{}
	h.mu.Unlock()
}
