package txscope

import "fmt"

// Policy maps a response status code to a finalization decision.
type Policy func(status int) Decision

// DefaultPolicy commits on 2xx and rolls back on everything else.
func DefaultPolicy(status int) Decision {
	if status >= 200 && status < 300 {
		return DecisionCommit
	}
	return DecisionRollback
}

// StatusRange commits when lo <= status <= hi.
func StatusRange(lo, hi int) (Policy, error) {
	if lo < 100 || hi > 599 || lo > hi {
		return nil, fmt.Errorf("txscope: invalid commit status range [%d, %d]", lo, hi)
	}
	return func(status int) Decision {
		if status >= lo && status <= hi {
			return DecisionCommit
		}
		return DecisionRollback
	}, nil
}
