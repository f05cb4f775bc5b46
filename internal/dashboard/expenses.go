package dashboard

import "troupe/internal/core"

// UpdateExpenses applies one payment change to the derived expense
// list. Approved payments are members of the list; new approvals append
// at the end, re-approvals replace in place, anything else removes the
// entry. The input slice is never mutated.
func UpdateExpenses(expenses []core.Payment, updated core.Payment) []core.Payment {
	idx := indexByID(expenses, updated.ID, func(p core.Payment) string { return p.ID })

	if updated.Status == core.PaymentApproved {
		if idx < 0 {
			out := make([]core.Payment, len(expenses), len(expenses)+1)
			copy(out, expenses)
			return append(out, updated)
		}
		return replaceAt(expenses, idx, updated)
	}

	if idx < 0 {
		return expenses
	}
	out := make([]core.Payment, 0, len(expenses)-1)
	out = append(out, expenses[:idx]...)
	return append(out, expenses[idx+1:]...)
}

// ProjectExpenses re-derives the expense list from scratch: exactly the
// approved payments, in payment order.
func ProjectExpenses(payments []core.Payment) []core.Payment {
	var out []core.Payment
	for _, p := range payments {
		if p.Status == core.PaymentApproved {
			out = append(out, p)
		}
	}
	return out
}
