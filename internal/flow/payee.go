package flow

import (
	"context"
	"strconv"
	"strings"

	"github.com/ndavila/comprobantes-bot/internal/match"
	"github.com/ndavila/comprobantes-bot/internal/session"
	"github.com/ndavila/comprobantes-bot/internal/whatsapp"
)

// maxListedPayees caps the disambiguation list presented to the sender.
const maxListedPayees = 10

func (c *Controller) handlePayeeConfirm(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	switch input {
	case "1":
		c.startMethodFlow(ctx, ev, sess.Data, true)
	case "2":
		data := sess.Data
		data.PayeeMatch = nil
		c.store.Set(ev.Sender, session.StateAwaitingPayeeRetry, data)
		c.reply(ctx, ev, msgAskPayeeName)
	case "3":
		c.cancel(ctx, ev)
	default:
		c.reply(ctx, ev, msgConfirmMenu)
	}
}

func (c *Controller) handlePayeeRetry(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	if strings.EqualFold(input, cancelKeyword) {
		c.cancel(ctx, ev)
		return
	}
	if input == "" {
		c.reply(ctx, ev, msgAskPayeeName)
		return
	}

	if m := c.resolvePayee(ctx, input); m != nil {
		data := sess.Data
		data.PayeeMatch = m
		c.store.Set(ev.Sender, session.StateAwaitingPayeeConfirm, data)
		c.reply(ctx, ev, payeeRetryConfirmPrompt(m.Name))
		return
	}

	c.showPayeeOptions(ctx, ev, sess.Data, input)
}

// showPayeeOptions presents the create-new option plus up to ten existing
// payees when a free-text name found no acceptable match.
func (c *Controller) showPayeeOptions(ctx context.Context, ev whatsapp.Event, data session.Data, searchTerm string) {
	payees, err := c.repo.ListPayees(ctx)
	if err != nil {
		// Degrade to an empty list: creating a new payee is still possible.
		c.log.Error().Err(err).Msg("failed to list payees for options")
		payees = nil
	}
	if len(payees) > maxListedPayees {
		payees = payees[:maxListedPayees]
	}

	data.SearchTerm = searchTerm
	data.Candidates = payees
	c.store.Set(ev.Sender, session.StateAwaitingPayeeChoice, data)
	c.reply(ctx, ev, payeeOptionsPrompt(searchTerm, payees))
}

func (c *Controller) handlePayeeChoice(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	data := sess.Data
	option, err := strconv.Atoi(input)
	if err != nil {
		c.reply(ctx, ev, payeeOptionsPrompt(data.SearchTerm, data.Candidates))
		return
	}

	switch {
	case option == 1:
		data.PendingName = data.SearchTerm
		data.WritingNewName = false
		c.store.Set(ev.Sender, session.StateAwaitingNewPayeeName, data)
		c.reply(ctx, ev, newPayeeNamePrompt(data.SearchTerm))

	case option >= 3 && option < len(data.Candidates)+3:
		selected := data.Candidates[option-3]
		data.PayeeMatch = &match.Match{Name: selected.Name, Score: 1.0, Method: match.MethodManual}
		c.store.Set(ev.Sender, session.StateAwaitingPayeeConfirm, data)
		c.reply(ctx, ev, payeeSelectedPrompt(selected.Name))

	case option == len(data.Candidates)+3:
		c.cancel(ctx, ev)

	default:
		c.reply(ctx, ev, payeeOptionsPrompt(data.SearchTerm, data.Candidates))
	}
}

func (c *Controller) handleNewPayeeName(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	data := sess.Data

	switch input {
	case "1":
		c.saveNewPayee(ctx, ev, data, data.PendingName)
	case "2":
		data.WritingNewName = true
		c.store.Set(ev.Sender, session.StateAwaitingNewPayeeName, data)
		c.reply(ctx, ev, msgWritePayeeName)
	case "3":
		c.cancel(ctx, ev)
	default:
		if data.WritingNewName && input != "" {
			c.saveNewPayee(ctx, ev, data, input)
			return
		}
		c.reply(ctx, ev, msgNewNameMenu)
	}
}

// saveNewPayee creates the registry row and continues into payment-method
// resolution. A failed insert keeps the session where it is for retry.
func (c *Controller) saveNewPayee(ctx context.Context, ev whatsapp.Event, data session.Data, name string) {
	created, err := c.repo.CreatePayee(ctx, name)
	if err != nil {
		c.log.Error().Err(err).Str("name", name).Msg("failed to create payee")
		c.reply(ctx, ev, msgPayeeSaveFailed)
		return
	}

	data.PayeeMatch = &match.Match{Name: created.Name, Score: 1.0, Method: match.MethodNew}
	data.PendingName = ""
	data.WritingNewName = false
	c.startMethodFlow(ctx, ev, data, true)
}
