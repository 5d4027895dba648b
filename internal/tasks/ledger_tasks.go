package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"school_transport_echo/internal/models"
	"school_transport_echo/internal/services"
)

// LedgerReconcileTaskDef replays payment groups under the current fee schedule
// and rewrites stale balance snapshots. Optional args: year, term.
type LedgerReconcileTaskDef struct {
	payments *services.PaymentService
}

func (t *LedgerReconcileTaskDef) TaskID() string {
	return "ledger_reconcile"
}

func (t *LedgerReconcileTaskDef) HandleExecution(ctx context.Context, args map[string]interface{}) (map[string]interface{}, error) {
	var filter models.PaymentFilter

	if raw, ok := args["year"]; ok && raw != nil {
		year, err := intArg(raw)
		if err != nil || year <= 0 {
			return nil, fmt.Errorf("year must be a positive number, got %v", raw)
		}
		filter.Year = year
	}
	if raw, ok := args["term"]; ok && raw != nil {
		term, _ := raw.(string)
		filter.Term = models.Term(term)
		if !filter.Term.Valid() {
			return nil, fmt.Errorf("unknown term %v", raw)
		}
	}

	res, err := t.payments.Reconcile(ctx, filter)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"status":  "success",
		"checked": res.Checked,
		"updated": res.Updated,
	}, nil
}

// intArg accepts the numeric shapes JSON-decoded task arguments come in
func intArg(v interface{}) (int, error) {
	switch n := v.(type) {
	case float64:
		return int(n), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(n)
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}
