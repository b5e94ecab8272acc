package solanarpc

import (
	"context"
	"errors"
	"fmt"
	"net"

	gethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/shubhamdubey02/solana-telemetry/internal/solana"
)

// codeTable is the pure code -> kind mapping of spec §4.4.
var codeTable = map[int]struct {
	kind      solana.ErrorKind
	retryable bool
}{
	-32002: {solana.ErrSimulationFailed, true},
	-32003: {solana.ErrSignatureVerification, false},
	-32004: {solana.ErrBlockNotAvailable, true},
	-32005: {solana.ErrNodeUnhealthy, true},
	-32007: {solana.ErrSlotSkipped, false},
	-32009: {solana.ErrMissingBlocks, false},
	-32014: {solana.ErrBlockStatusUnavailable, true},
	-32015: {solana.ErrUnsupportedTxVersion, false},
	-32016: {solana.ErrMinContextSlotNotReached, true},
	-32602: {solana.ErrInvalidParameters, false},
}

// instructionDetailTable maps known string detail names from
// InstructionError(index, detail) to retryability, per spec §4.4.
var instructionDetailTable = map[string]bool{
	"InsufficientFundsForRent": false,
	"ProgramFailedToComplete":  true,
}

// customCodeRetryable maps a handful of common DEX route-not-found /
// slippage custom program error codes to retryability. These are program
// specific; unknown (program, code) pairs default to non-retryable.
var customCodeRetryable = map[string]map[int]bool{
	// Jupiter-style route-not-found / slippage-exceeded codes.
	"JUP6LkbZbjS1jKKwapdHF3G3kVhEmMYPV6Ma9QyGNPp": {
		6001: true, // SlippageToleranceExceeded: transient, worth retrying
		6002: false, // RouteNotFound: structural, retrying won't help
	},
}

// Classify converts a JSON-RPC error object (code, message, optional data)
// into the closed ErrorKind taxonomy. It is a pure function: no I/O, no
// mutation.
func Classify(code int, message string, data any) *solana.RPCError {
	if entry, ok := codeTable[code]; ok {
		return (&solana.RPCError{Kind: entry.kind, Message: message}).WithRetryable(entry.retryable)
	}
	return &solana.RPCError{Kind: solana.ErrUnknown, Message: message}
}

// ClassifyInstructionError classifies `InstructionError(index, detail)`.
// If detail carries a Custom(code) under the given program, the
// program-specific custom-code table is consulted; otherwise known string
// detail names are mapped directly.
func ClassifyInstructionError(programID string, customCode *int, detailName string) *solana.RPCError {
	if customCode != nil {
		if table, ok := customCodeRetryable[programID]; ok {
			if retryable, ok := table[*customCode]; ok {
				return solana.NewProgramInstructionError(programID, fmt.Sprintf("Custom(%d)", *customCode), retryable)
			}
		}
		return solana.NewProgramInstructionError(programID, fmt.Sprintf("Custom(%d)", *customCode), false)
	}
	if retryable, ok := instructionDetailTable[detailName]; ok {
		return solana.NewProgramInstructionError(programID, detailName, retryable)
	}
	return solana.NewProgramInstructionError(programID, detailName, false)
}

// classifyTransportErr wraps transport-level failures (network errors,
// context deadline, HTTP 429) into the taxonomy. requestID is carried
// through for logging correlation only.
func classifyTransportErr(err error, requestID string) *solana.RPCError {
	if err == nil {
		return nil
	}

	var httpErr gethrpc.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.StatusCode == 429 {
			return &solana.RPCError{Kind: solana.ErrRateLimited, Message: httpErr.Error()}
		}
		if httpErr.StatusCode >= 500 {
			return (&solana.RPCError{Kind: solana.ErrTransportError, Message: httpErr.Error()}).WithRetryable(true)
		}
	}

	var rpcErr gethrpc.Error
	if errors.As(err, &rpcErr) {
		return Classify(rpcErr.ErrorCode(), rpcErr.Error(), nil)
	}

	if errors.Is(err, context.DeadlineExceeded) || isNetworkTimeout(err) {
		return (&solana.RPCError{Kind: solana.ErrTransportError, Message: err.Error()}).WithRetryable(true)
	}

	return (&solana.RPCError{Kind: solana.ErrTransportError, Message: err.Error()}).WithRetryable(true)
}

func isNetworkTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
