package eventlog

import (
	"fmt"

	"github.com/google/uuid"
)

// TxIDGenerator mints transaction identifiers for event log writes.
// Events appended together share one ID, which lets the undo engine
// treat them as a unit.
type TxIDGenerator interface {
	NewTxID() (string, error)
}

// UUIDGenerator generates UUIDv7 transaction IDs (time-ordered, so
// they sort in roughly the same order as the log itself).
type UUIDGenerator struct{}

func (UUIDGenerator) NewTxID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("failed to generate transaction ID: %w", err)
	}
	return id.String(), nil
}

// FixedGenerator returns a constant ID. Used in tests for
// deterministic output.
type FixedGenerator struct {
	ID string
}

func (g FixedGenerator) NewTxID() (string, error) {
	return g.ID, nil
}
