package dashboard

import (
	"reflect"
	"testing"

	"troupe/internal/core"
)

func pay(id string, status core.PaymentStatus) core.Payment {
	return core.Payment{ID: id, Status: status, PaymentMethod: "card", Amount: core.Money{Cents: 100}}
}

func TestUpdateExpensesRules(t *testing.T) {
	base := []core.Payment{pay("a", core.PaymentApproved), pay("b", core.PaymentApproved)}

	t.Run("new approval appends", func(t *testing.T) {
		out := UpdateExpenses(base, pay("c", core.PaymentApproved))
		if len(out) != 3 || out[2].ID != "c" {
			t.Fatalf("expected append at end, got %v", ids(out))
		}
		if len(base) != 2 {
			t.Fatal("input slice mutated")
		}
	})

	t.Run("re-approval replaces in place", func(t *testing.T) {
		updated := pay("a", core.PaymentApproved)
		updated.Amount = core.Money{Cents: 999}
		out := UpdateExpenses(base, updated)
		if len(out) != 2 || out[0].Amount.Cents != 999 || out[0].ID != "a" {
			t.Fatalf("expected in-place replace, got %+v", out)
		}
	})

	t.Run("non-approved removes", func(t *testing.T) {
		out := UpdateExpenses(base, pay("a", core.PaymentFailed))
		if !reflect.DeepEqual(ids(out), []string{"b"}) {
			t.Fatalf("expected removal, got %v", ids(out))
		}
	})

	t.Run("non-approved absent is no-op", func(t *testing.T) {
		out := UpdateExpenses(base, pay("z", core.PaymentCompleted))
		if !reflect.DeepEqual(ids(out), []string{"a", "b"}) {
			t.Fatalf("expected unchanged, got %v", ids(out))
		}
	})
}

// The standing invariant: after any sequence of payment changes, the
// identity set of expenses equals the identity set of approved
// payments.
func TestExpenseInvariantOverSequences(t *testing.T) {
	steps := []core.Payment{
		pay("p1", core.PaymentApproved),
		pay("p2", core.PaymentApproved),
		pay("p1", core.PaymentFailed),
		pay("p3", core.PaymentCompleted),
		pay("p3", core.PaymentApproved),
		pay("p2", core.PaymentAuthorized),
		pay("p1", core.PaymentApproved),
		pay("p3", core.PaymentFailed),
	}

	payments := []core.Payment{
		pay("p1", core.PaymentAuthorized),
		pay("p2", core.PaymentAuthorized),
		pay("p3", core.PaymentAuthorized),
	}
	var expenses []core.Payment

	for i, step := range steps {
		idx := indexByID(payments, step.ID, func(p core.Payment) string { return p.ID })
		payments = replaceAt(payments, idx, step)
		expenses = UpdateExpenses(expenses, step)

		want := idSet(ProjectExpenses(payments))
		got := idSet(expenses)
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("step %d: expenses %v, approved payments %v", i, got, want)
		}
	}
}

func TestProjectExpenses(t *testing.T) {
	payments := []core.Payment{
		pay("p1", core.PaymentFailed),
		pay("p2", core.PaymentApproved),
		pay("p3", core.PaymentAuthorized),
		pay("p4", core.PaymentApproved),
	}
	got := ids(ProjectExpenses(payments))
	if !reflect.DeepEqual(got, []string{"p2", "p4"}) {
		t.Fatalf("expected approved payments in order, got %v", got)
	}
	if out := ProjectExpenses(nil); out != nil {
		t.Fatalf("expected nil for no payments, got %v", out)
	}
}

func ids(ps []core.Payment) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.ID)
	}
	return out
}

func idSet(ps []core.Payment) map[string]bool {
	out := make(map[string]bool, len(ps))
	for _, p := range ps {
		out[p.ID] = true
	}
	return out
}
