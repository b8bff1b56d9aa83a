package ledger

import (
	"errors"
	"fmt"
)

// Operation names, used in errors, logs, events and metrics.
const (
	OpLoad              = "load"
	OpAddTransaction    = "add_transaction"
	OpEditTransaction   = "edit_transaction"
	OpDeleteTransaction = "delete_transaction"
	OpAddCard           = "add_card"
	OpUpdateCard        = "update_card"
	OpDeleteCard        = "delete_card"
	OpUpdateSettings    = "update_settings"
	OpReset             = "reset"
	OpReconcile         = "reconcile"
)

// InconsistencyError reports that a transaction write was committed but the
// paired card write was not. The card's stored balance no longer matches its
// transactions until Reconcile runs.
type InconsistencyError struct {
	CardID string
	Op     string
	Err    error
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%s: card %s balance not updated: %v", e.Op, e.CardID, e.Err)
}

func (e *InconsistencyError) Unwrap() error { return e.Err }

// IsInconsistency reports whether err carries an InconsistencyError.
func IsInconsistency(err error) bool {
	var ie *InconsistencyError
	return errors.As(err, &ie)
}
