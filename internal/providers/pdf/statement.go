package pdf

import (
	"bytes"
	"context"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateStatement(ctx context.Context, data StatementData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Payout Statement", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	m.AddRow(24,
		col.New(6).Add(
			text.New("Reference: "+data.Reference, props.Text{Top: 0}),
			text.New("Issued: "+data.IssueDate, props.Text{Top: 4}),
			text.New("Period: "+data.PeriodStart+" to "+data.PeriodEnd, props.Text{Top: 8}),
			text.New("Status: "+data.Status, props.Text{Top: 12}),
		),
		col.New(6).Add(
			text.New(data.VenueName, props.Text{Style: fontstyle.Bold}),
			text.New("Payable to: "+data.PromoterName, props.Text{Top: 5}),
		),
	)

	m.AddRow(8,
		text.NewCol(3, "Date", props.Text{Style: fontstyle.Bold}),
		text.NewCol(4, "Description", props.Text{Style: fontstyle.Bold}),
		text.NewCol(2, "Type", props.Text{Style: fontstyle.Bold}),
		text.NewCol(3, "Amount", props.Text{Style: fontstyle.Bold, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	for _, item := range data.Lines {
		m.AddRow(6,
			text.NewCol(3, item.Date),
			text.NewCol(4, item.Description),
			text.NewCol(2, item.Type),
			text.NewCol(3, item.Amount, props.Text{Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(6,
		col.New(9).Add(text.New("Gross", props.Text{Align: align.Right})),
		text.NewCol(3, data.GrossAmount, props.Text{Align: align.Right}),
	)
	m.AddRow(6,
		col.New(9).Add(text.New("Holds", props.Text{Align: align.Right})),
		text.NewCol(3, data.HoldAmount, props.Text{Align: align.Right}),
	)
	m.AddRow(8,
		col.New(9).Add(text.New("Net payable", props.Text{Align: align.Right, Style: fontstyle.Bold})),
		text.NewCol(3, data.NetAmount, props.Text{Align: align.Right, Style: fontstyle.Bold}),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
