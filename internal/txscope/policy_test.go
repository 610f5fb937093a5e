package txscope

import "testing"

func TestDefaultPolicy(t *testing.T) {
	cases := map[int]Decision{
		100: DecisionRollback,
		199: DecisionRollback,
		200: DecisionCommit,
		201: DecisionCommit,
		204: DecisionCommit,
		299: DecisionCommit,
		300: DecisionRollback,
		301: DecisionRollback,
		404: DecisionRollback,
		500: DecisionRollback,
	}
	for status, want := range cases {
		if got := DefaultPolicy(status); got != want {
			t.Fatalf("DefaultPolicy(%d) = %s, want %s", status, got, want)
		}
	}
}

func TestStatusRange(t *testing.T) {
	policy, err := StatusRange(200, 399)
	if err != nil {
		t.Fatalf("StatusRange() error = %v", err)
	}
	if policy(303) != DecisionCommit || policy(400) != DecisionRollback {
		t.Fatalf("StatusRange(200, 399) misclassified 303 or 400")
	}

	for _, bad := range [][2]int{{99, 299}, {200, 600}, {300, 200}} {
		if _, err := StatusRange(bad[0], bad[1]); err == nil {
			t.Fatalf("StatusRange(%d, %d) expected error", bad[0], bad[1])
		}
	}
}

func TestParseStreamErrorMode(t *testing.T) {
	for raw, want := range map[string]StreamErrorMode{"": StreamErrorLog, "log": StreamErrorLog, "ABORT": StreamErrorAbort} {
		got, err := ParseStreamErrorMode(raw)
		if err != nil || got != want {
			t.Fatalf("ParseStreamErrorMode(%q) = %s, %v", raw, got, err)
		}
	}
	if _, err := ParseStreamErrorMode("retry"); err == nil {
		t.Fatalf("ParseStreamErrorMode(retry) expected error")
	}
}
