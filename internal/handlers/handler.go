// Package handlers implements the Handler Framework (C6) and the
// block/transaction extractors built on top of it (C8 mint extraction, C9
// auxiliary extractors, plus the supplemented pump/wallet/tx-stats
// handlers from SPEC_FULL.md).
package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/shubhamdubey02/solana-telemetry/internal/metrics"
	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

// Handler is the abstract interface every extractor satisfies (spec §4.6).
// Implementations compose Stats and Envelope rather than inheriting from a
// base class (spec §9: "replace with a handler interface and compose
// shared behavior via a wrapper handler that delegates").
type Handler interface {
	// ProcessBlock runs the handler's per-block extraction. query is the
	// Query Layer, passed as a parameter rather than stored on the handler
	// to avoid the handler<->query-layer cyclic reference spec §9 calls
	// out (some handlers need to look up metadata mid-extraction).
	ProcessBlock(ctx context.Context, block *solana.Block) (Envelope[any], error)

	// ProcessResult adapts a raw RPC envelope (as received before block
	// normalization) into the handler's standard response shape.
	ProcessResult(ctx context.Context, rpcResult any) (Envelope[any], error)

	// GetResults returns the handler's accumulated state.
	GetResults() any

	// Reset clears accumulated statistics. Statistics otherwise live for
	// the process lifetime.
	Reset()
}

// Envelope is the shared `{success, error, timestamp}` response shape every
// handler's ProcessResult returns through (supplemented from
// original_source/backend/app/utils/base_response_handler.py and
// response_base.py), composed generically instead of via inheritance.
type Envelope[T any] struct {
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Data      T         `json:"data,omitempty"`
}

func Ok[T any](data T) Envelope[T] {
	return Envelope[T]{Success: true, Timestamp: time.Now(), Data: data}
}

func Fail[T any](err error) Envelope[T] {
	return Envelope[T]{Success: false, Error: err.Error(), Timestamp: time.Now()}
}

// Stats is the common counter set every handler accumulates (spec §3:
// "Per handler, a monotonically accumulating counter set plus a per-block
// snapshot"). Handler-specific fields are kept on the owning handler
// alongside an embedded Stats, since Go has no field inheritance.
type Stats struct {
	mu sync.Mutex

	TotalProcessed int
	Success        int
	Failure        int
	Skipped        int
	ErrorKinds     map[string]int

	InstructionErrors int
	TransactionErrors int

	name string
	reg  *metrics.Registry
}

func NewStats() *Stats {
	return &Stats{ErrorKinds: make(map[string]int)}
}

// Bind attaches a Prometheus registry so this handler's counters are also
// exported for scraping, under the given handler name label. Optional: a
// Stats never bound to a registry behaves exactly as before.
func (s *Stats) Bind(name string, reg *metrics.Registry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name, s.reg = name, reg
}

func (s *Stats) IncrementTotal() {
	s.mu.Lock()
	if s.reg != nil {
		s.reg.HandlerBlocksProcessed.WithLabelValues(s.name).Inc()
	}
	defer s.mu.Unlock()
	s.TotalProcessed++
}

func (s *Stats) IncrementSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Success++
}

func (s *Stats) IncrementFailure() {
	s.mu.Lock()
	if s.reg != nil {
		s.reg.HandlerFailures.WithLabelValues(s.name).Inc()
	}
	defer s.mu.Unlock()
	s.Failure++
}

func (s *Stats) IncrementSkipped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
}

func (s *Stats) RecordError(kind string) {
	s.mu.Lock()
	if s.reg != nil {
		s.reg.HandlerInstructions.WithLabelValues(s.name, kind).Inc()
	}
	defer s.mu.Unlock()
	s.ErrorKinds[kind]++
}

func (s *Stats) RecordInstructionError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.InstructionErrors++
}

func (s *Stats) RecordTransactionError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TransactionErrors++
}

// Snapshot returns a copy safe to hand to a caller without further locking.
func (s *Stats) Snapshot() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := Stats{
		TotalProcessed:    s.TotalProcessed,
		Success:           s.Success,
		Failure:           s.Failure,
		Skipped:           s.Skipped,
		InstructionErrors: s.InstructionErrors,
		TransactionErrors: s.TransactionErrors,
		ErrorKinds:        make(map[string]int, len(s.ErrorKinds)),
	}
	for k, v := range s.ErrorKinds {
		cp.ErrorKinds[k] = v
	}
	return cp
}

func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TotalProcessed, s.Success, s.Failure, s.Skipped = 0, 0, 0, 0
	s.InstructionErrors, s.TransactionErrors = 0, 0
	s.ErrorKinds = make(map[string]int)
}

// SafeProcessBlock traps a panic from fn so that one handler's failure on a
// block never propagates to sibling handlers processing the same block
// (spec §4.6/§7). The offending block is recorded as failed for this
// handler only.
func SafeProcessBlock(name string, stats *Stats, fn func() (Envelope[any], error)) (env Envelope[any], err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("handler: recovered from panic processing block", "handler", name, "panic", r)
			stats.IncrementFailure()
			env = Fail[any](fmt.Errorf("handler %s: panic: %v", name, r))
			err = nil
		}
	}()
	return fn()
}

// IsVote reports whether tx is a vote transaction: vote transactions are
// identified and skipped by default in extractors (spec §3).
func IsVote(tx solana.Tx) bool {
	if len(tx.Message.Instructions) == 0 {
		return false
	}
	return tx.Message.Instructions[0].ProgramID == voteProgramID
}

const voteProgramID = "Vote111111111111111111111111111111111111111"
