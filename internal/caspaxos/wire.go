package caspaxos

import (
	"fmt"

	"github.com/arjakob/caspaxos/internal/statemachine"
)

// statemachineFromWire decodes a Promise/Accept's string-keyed value map
// (spec §6) back into a local KV, wrapping decode failures with context.
func statemachineFromWire(snapshot map[string]int64) (*statemachine.KV, error) {
	kv, err := statemachine.FromSnapshot(snapshot)
	if err != nil {
		return nil, fmt.Errorf("decode state machine snapshot: %w", err)
	}
	return kv, nil
}
