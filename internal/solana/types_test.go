package solana

import "testing"

func TestIsPumpSuffixed(t *testing.T) {
	cases := map[string]bool{
		"abc123pump":  true,
		"abc123Pump":  false, // case-sensitive, spec requires exact match
		"pump":        false, // must be longer than the suffix itself
		"xpump":       true,
		"abc123punk":  false,
		"":            false,
	}
	for addr, want := range cases {
		if got := IsPumpSuffixed(addr); got != want {
			t.Errorf("IsPumpSuffixed(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestMetaFailed(t *testing.T) {
	if (Meta{}).Failed() {
		t.Fatal("zero-value Meta should not report Failed")
	}
	if !(Meta{Err: "some error"}).Failed() {
		t.Fatal("non-nil Err should report Failed")
	}
}

func TestInstructionType(t *testing.T) {
	var ix Instruction
	if got := ix.InstructionType(); got != "" {
		t.Fatalf("InstructionType() on unparsed instruction = %q, want empty", got)
	}

	ix.Parsed = &ParsedInstruction{Type: "transfer"}
	if got := ix.InstructionType(); got != "transfer" {
		t.Fatalf("InstructionType() = %q, want transfer", got)
	}
}
