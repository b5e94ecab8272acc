package solana

import "testing"

func TestErrorKindString(t *testing.T) {
	if got := ErrRateLimited.String(); got != "RateLimited" {
		t.Fatalf("String() = %q, want RateLimited", got)
	}
	if got := ErrorKind(999).String(); got != "Unknown" {
		t.Fatalf("String() on unmapped kind = %q, want Unknown", got)
	}
}

func TestRPCErrorRetryableDefault(t *testing.T) {
	err := &RPCError{Kind: ErrNodeBehind}
	if !err.Retryable() {
		t.Fatal("ErrNodeBehind should default to retryable")
	}

	err = &RPCError{Kind: ErrInvalidParameters}
	if err.Retryable() {
		t.Fatal("ErrInvalidParameters should default to terminal")
	}
}

func TestRPCErrorWithRetryableOverride(t *testing.T) {
	err := &RPCError{Kind: ErrInvalidParameters}
	err.WithRetryable(true)
	if !err.Retryable() {
		t.Fatal("WithRetryable(true) should override the Kind default")
	}
}

func TestNewProgramInstructionError(t *testing.T) {
	err := NewProgramInstructionError("JUP6LkbZbjS1jKKwapdHF3G3kVhEmMYPV6Ma9QyGNPp", "Custom(6001)", true)
	if err.Kind != ErrProgramInstruction {
		t.Fatalf("Kind = %v, want ErrProgramInstruction", err.Kind)
	}
	if !err.Retryable() {
		t.Fatal("explicit retryable=true should stick")
	}
	want := "ProgramInstructionError: program JUP6LkbZbjS1jKKwapdHF3G3kVhEmMYPV6Ma9QyGNPp: Custom(6001)"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
