package memory

import (
	"context"
	"testing"

	"troupe/internal/core"
)

func TestStore_Append(t *testing.T) {
	s := New()
	ctx := context.Background()

	p := core.Payment{ID: "p1", Status: core.PaymentApproved, PaymentMethod: "card", Amount: core.Money{Cents: 2500}}
	ref, err := s.Append(ctx, p)
	if err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	if ref != "mem:1" {
		t.Errorf("ref = %q, want mem:1", ref)
	}

	rows := s.Rows()
	if len(rows) != 1 || rows[0].ID != "p1" {
		t.Errorf("rows = %v, want [p1]", rows)
	}
}

func TestStore_AppendRejectsInvalid(t *testing.T) {
	s := New()

	_, err := s.Append(context.Background(), core.Payment{ID: "p1", Status: "warped", PaymentMethod: "card", Amount: core.Money{Cents: 100}})
	if err == nil {
		t.Error("Append() should reject an invalid payment")
	}
	if len(s.Rows()) != 0 {
		t.Error("invalid payment must not be stored")
	}
}
