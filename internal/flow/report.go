package flow

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"github.com/ndavila/comprobantes-bot/internal/model"
	"github.com/ndavila/comprobantes-bot/internal/repository"
	"github.com/ndavila/comprobantes-bot/internal/whatsapp"
)

// reportKeyword triggers the monthly summary from an idle sender.
const reportKeyword = "resumen"

// sendMonthlyReport replies with the sender's totals for the current month,
// with a bar chart attached when there is anything to draw.
func (c *Controller) sendMonthlyReport(ctx context.Context, ev whatsapp.Event) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	comprobantes, err := c.repo.ListComprobantes(ctx, ev.Sender, repository.ComprobanteFilter{
		StartDate: &start,
		EndDate:   &now,
	})
	if err != nil {
		c.log.Error().Err(err).Str("sender", ev.Sender).Msg("failed to load comprobantes for report")
		c.reply(ctx, ev, msgReportFailed)
		return
	}

	var income, expense float64
	for _, comp := range comprobantes {
		switch comp.MovementType {
		case model.MovementIncome:
			income += comp.Amount
		case model.MovementExpense:
			expense += comp.Amount
		}
	}

	text := fmt.Sprintf(
		"📊 *RESUMEN %s*\n\n"+
			"📋 Comprobantes: %d\n"+
			"💰 Ingresos: $%.2f\n"+
			"💸 Egresos: $%.2f\n"+
			"💵 Balance: $%.2f",
		now.Format("01/2006"),
		len(comprobantes),
		income,
		expense,
		income-expense,
	)

	png, err := renderMonthlyChart(income, expense)
	if err != nil {
		c.log.Warn().Err(err).Msg("chart rendering failed, sending text only")
	}
	if png != nil {
		if c.messenger.SendImage(ctx, ev.Sender, png, text) {
			return
		}
	}
	c.reply(ctx, ev, text)
}

// renderMonthlyChart draws the income/expense bar chart. Returns nil bytes
// when both totals are zero, since there is nothing to draw.
func renderMonthlyChart(income, expense float64) ([]byte, error) {
	if income == 0 && expense == 0 {
		return nil, nil
	}

	graph := chart.BarChart{
		Title:    "Resumen del mes",
		Width:    600,
		Height:   400,
		BarWidth: 100,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		Bars: []chart.Value{
			{Value: income, Label: "Ingresos"},
			{Value: expense, Label: "Egresos"},
		},
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), nil
}
