package flow

import (
	"context"
	"strings"
	"time"

	"github.com/ndavila/comprobantes-bot/internal/model"
	"github.com/ndavila/comprobantes-bot/internal/session"
	"github.com/ndavila/comprobantes-bot/internal/whatsapp"
)

// showSummary presents the accumulated record for final confirmation.
func (c *Controller) showSummary(ctx context.Context, ev whatsapp.Event, data session.Data) {
	data.Methods = nil
	data.Candidates = nil
	c.store.Set(ev.Sender, session.StateAwaitingSaveConfirm, data)
	c.reply(ctx, ev, summaryPrompt(data))
}

func (c *Controller) handleSaveConfirm(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	switch input {
	case "1":
		c.commit(ctx, ev, sess)
	case "2":
		c.store.Set(ev.Sender, session.StateAwaitingModificationChoice, sess.Data)
		c.reply(ctx, ev, modificationMenuPrompt(sess.Data))
	case "3":
		c.cancel(ctx, ev)
	default:
		c.reply(ctx, ev, msgSaveMenu)
	}
}

// commit assembles the comprobante from the session's accumulated data and
// performs the single insert. The payee id is resolved by name immediately
// before writing, since the name may have been settled turns ago. Any
// failure leaves the session in awaiting_save_confirm so no disambiguation
// work is lost; success clears it.
func (c *Controller) commit(ctx context.Context, ev whatsapp.Event, sess session.Session) {
	data := sess.Data
	if data.PayeeMatch == nil || data.Method == nil {
		c.log.Error().Str("sender", ev.Sender).Msg("commit attempted with unresolved fields")
		c.reply(ctx, ev, msgSaveFailed)
		return
	}

	payee, err := c.repo.FindPayeeByName(ctx, data.PayeeMatch.Name)
	if err != nil {
		c.log.Error().Err(err).Str("payee", data.PayeeMatch.Name).Msg("payee lookup failed at commit")
		c.reply(ctx, ev, msgSaveFailed)
		return
	}

	extraction := data.Extraction
	if extraction == nil {
		extraction = &model.Extraction{}
	}

	comprobante := &model.Comprobante{
		Sender:          ev.Sender,
		PayeeID:         payee.ID,
		Amount:          extraction.Amount,
		Date:            extraction.Date,
		Time:            extraction.Time,
		MovementType:    extraction.MovementType,
		PaymentMethodID: data.Method.ID,
		Reference:       extraction.Reference,
		OperationNumber: extraction.OperationNumber,
		Note:            extraction.Note,
		RawText:         data.RawText,
		MatchScore:      data.PayeeMatch.Score,
		MatchMethod:     string(data.PayeeMatch.Method),
		CreatedAt:       time.Now(),
	}
	comprobante.GenerateID()

	if err := c.repo.CreateComprobante(ctx, comprobante); err != nil {
		c.log.Error().Err(err).Str("sender", ev.Sender).Msg("comprobante insert failed")
		c.reply(ctx, ev, msgSaveFailed)
		return
	}

	c.store.Clear(ev.Sender)
	c.log.Info().
		Str("id", comprobante.ID).
		Str("sender", ev.Sender).
		Float64("amount", comprobante.Amount).
		Msg("comprobante saved")
	c.reply(ctx, ev, savedPrompt(comprobante.ID, data.PayeeMatch.Name, comprobante.Amount))
}

// handleModificationChoice is an acknowledged placeholder: field-by-field
// modification is not built out. "6" returns to the summary and "7" (or the
// cancel keyword) aborts, so the sender is never stranded here.
func (c *Controller) handleModificationChoice(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	switch {
	case input == "6":
		c.showSummary(ctx, ev, sess.Data)
	case input == "7" || strings.EqualFold(input, cancelKeyword):
		c.cancel(ctx, ev)
	default:
		c.reply(ctx, ev, msgModificationWIP)
	}
}
