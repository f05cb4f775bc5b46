package sheets

import (
	"context"

	"troupe/internal/core"
)

// Ports for outbound report adapters.
type (
	// ReportWriter appends an approved payment to the expense report.
	ReportWriter interface {
		Append(ctx context.Context, p core.Payment) (rowRef string, err error)
	}
)
