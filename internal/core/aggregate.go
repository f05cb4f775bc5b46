package core

// DashboardAggregate is the client-held snapshot of the team's finance
// state. Expenses is derived from Payments: it holds exactly the
// approved payments. The aggregate is replaced as a whole on every
// reconciliation, never mutated field by field.
type DashboardAggregate struct {
	Invoices []Invoice `json:"invoices"`
	Payments []Payment `json:"payments"`
	Refunds  []Refund  `json:"refunds"`
	Expenses []Payment `json:"expenses"`
	Budget   Budget    `json:"budget"`
}
