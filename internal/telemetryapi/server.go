// Package telemetryapi is the thin downstream HTTP adapter over the
// pipeline orchestrator and network status aggregator (spec §6's REST
// table, "out of scope — interface only" upstream but built here as a
// minimal concrete adapter so the module runs end to end). It is the one
// ambient concern intentionally left on the standard library: no example
// repo in the pack runs a REST API of this shape, and net/http's Go 1.22
// method+path ServeMux patterns are the idiomatic stdlib choice with
// nothing in the corpus to imitate instead.
package telemetryapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/shubhamdubey02/solana-telemetry/internal/netstatus"
	"github.com/shubhamdubey02/solana-telemetry/internal/pipeline"
	"github.com/shubhamdubey02/solana-telemetry/internal/solanarpc"
)

const (
	maxRecentBlocks = 20
	minRecentBlocks = 1
)

// Server wires the orchestrator and status aggregator behind net/http.
type Server struct {
	orchestrator *pipeline.Orchestrator
	status       *netstatus.Aggregator
	query        *solanarpc.Query
}

func NewServer(orch *pipeline.Orchestrator, status *netstatus.Aggregator, query *solanarpc.Query) *Server {
	return &Server{orchestrator: orch, status: status, query: query}
}

// Handler builds the routed net/http.Handler, per spec §6's endpoint table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /analytics/mints/recent", s.handleRecentMints)
	mux.HandleFunc("GET /analytics/mints/analyze/{mint}", s.handleAnalyzeMint)
	mux.HandleFunc("GET /analytics/mints/stats", s.handleMintStats)
	mux.HandleFunc("GET /network-status", s.handleNetworkStatus)
	return mux
}

// envelope is the boundary response shape from spec §6: "{success:false,
// error:<message>, errors:[...]}" on failure, with success-path fields
// spliced in by each handler.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("telemetryapi: failed to encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, envelope{"success": false, "error": err.Error()})
}

func (s *Server) handleRecentMints(w http.ResponseWriter, r *http.Request) {
	blocks := minRecentBlocks
	if raw := r.URL.Query().Get("blocks"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minRecentBlocks || n > maxRecentBlocks {
			writeError(w, http.StatusBadRequest, errInvalidBlocks)
			return
		}
		blocks = n
	}

	result := s.orchestrator.GetRecentMints(r.Context(), blocks)
	body := envelope{
		"success":          result.Success,
		"new_mints":        orEmpty(result.NewMints),
		"pump_tokens":      orEmpty(result.PumpTokens),
		"stats":            result.Stats,
		"blocks_processed": result.BlocksProcessed,
		"timestamp":        time.Now().UTC(),
	}
	if result.Message != "" {
		body["message"] = result.Message
	}
	if !result.Success {
		writeJSON(w, http.StatusServiceUnavailable, body)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleAnalyzeMint(w http.ResponseWriter, r *http.Request) {
	mint := r.PathValue("mint")
	if mint == "" {
		writeError(w, http.StatusBadRequest, errMissingMint)
		return
	}

	supply, err := s.query.GetTokenSupply(r.Context(), mint)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	info, err := s.query.GetAccountInfo(r.Context(), mint)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	if info == nil {
		writeError(w, http.StatusNotFound, errMintNotFound)
		return
	}

	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"mint":      mint,
		"supply":    supply,
		"owner":     info.Owner,
		"lamports":  info.Lamports,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleMintStats(w http.ResponseWriter, r *http.Request) {
	timeframe := r.URL.Query().Get("timeframe")
	switch timeframe {
	case "", "1h", "24h", "7d":
	default:
		writeError(w, http.StatusBadRequest, errInvalidTimeframe)
		return
	}
	if timeframe == "" {
		timeframe = "1h"
	}

	// Aggregate statistics beyond the bounded recent window are a
	// Non-goal (spec §1: "historical indexing beyond the bounded recent
	// window"); this reports the orchestrator's own accumulated counters
	// for the requested window label instead of a persisted time series.
	result := s.orchestrator.GetRecentMints(r.Context(), minRecentBlocks)
	writeJSON(w, http.StatusOK, envelope{
		"success":   true,
		"timeframe": timeframe,
		"stats":     result.Stats,
		"timestamp": time.Now().UTC(),
	})
}

func (s *Server) handleNetworkStatus(w http.ResponseWriter, r *http.Request) {
	summaryOnly := r.URL.Query().Get("summary_only") == "true"
	report := s.status.GetComprehensiveStatus(r.Context(), summaryOnly)

	body := envelope{
		"success":   report.Status != netstatus.StatusError,
		"status":    report.Status,
		"summary":   report.Summary,
		"timestamp": report.Timestamp,
	}
	if !summaryOnly {
		body["nodes"] = report.Nodes
		body["performance"] = report.Performance
		body["votes"] = report.Votes
	}
	if len(report.Failures) > 0 {
		body["errors"] = report.Failures
	}
	writeJSON(w, http.StatusOK, body)
}

func orEmpty(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
