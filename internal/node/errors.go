package node

import "fmt"

// ReorgTooDeepError reports that a candidate branch would require
// unwinding more blocks than the orchestrator retains history for
// (spec.md §4.6: "blocks causing deeper reorgs are rejected and
// logged").
type ReorgTooDeepError struct {
	Depth    uint64
	MaxDepth uint64
}

func (e *ReorgTooDeepError) Error() string {
	return fmt.Sprintf("node: reorg depth %d exceeds maximum %d", e.Depth, e.MaxDepth)
}

func consensusErrReorgTooDeep(depth, max uint64) error {
	return &ReorgTooDeepError{Depth: depth, MaxDepth: max}
}
