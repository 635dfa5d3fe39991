package pdf

import (
	"context"
	"io"
)

type Provider interface {
	GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error)
}

// StatementData is the fully formatted payload for a payout statement.
// Amounts arrive pre-formatted so the renderer stays currency-agnostic.
type StatementData struct {
	VenueName    string
	PromoterName string
	Reference    string
	PeriodStart  string
	PeriodEnd    string
	IssueDate    string

	Lines []StatementLine

	GrossAmount string
	HoldAmount  string
	NetAmount   string
	Status      string
}

type StatementLine struct {
	Date        string
	Description string
	Type        string
	Amount      string
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	return nil, nil
}
