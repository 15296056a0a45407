package flow

import (
	"context"
	"strconv"
	"strings"

	"github.com/ndavila/comprobantes-bot/internal/match"
	"github.com/ndavila/comprobantes-bot/internal/session"
	"github.com/ndavila/comprobantes-bot/internal/whatsapp"
)

// startMethodFlow begins payment-method resolution once the payee is
// settled. When preMatch is set and the extraction guessed a method name,
// a loose two-way containment match is tried before falling back to the
// enumerated-choice prompt. The containment heuristic is intentionally
// cheaper and looser than the payee resolver's similarity score.
func (c *Controller) startMethodFlow(ctx context.Context, ev whatsapp.Event, data session.Data, preMatch bool) {
	methods, err := c.repo.ListPaymentMethods(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("payment method registry unreachable")
		c.reply(ctx, ev, msgNoMethods)
		return
	}
	if len(methods) == 0 {
		c.reply(ctx, ev, msgNoMethods)
		return
	}

	if preMatch && data.Extraction != nil && data.Extraction.PaymentMethod != "" {
		if m := match.LooseMethodMatch(data.Extraction.PaymentMethod, methods); m != nil {
			data.Method = m
			c.store.Set(ev.Sender, session.StateAwaitingMethodConfirm, data)
			c.reply(ctx, ev, methodConfirmPrompt(m.Name))
			return
		}
	}

	data.Methods = methods
	c.store.Set(ev.Sender, session.StateAwaitingMethodChoice, data)
	c.reply(ctx, ev, methodListPrompt(methods))
}

func (c *Controller) handleMethodConfirm(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	switch input {
	case "1":
		c.showSummary(ctx, ev, sess.Data)
	case "2":
		// Redo goes straight to the enumerated list; re-running the loose
		// pre-match would only re-offer the rejected method.
		data := sess.Data
		data.Method = nil
		c.startMethodFlow(ctx, ev, data, false)
	case "3":
		c.cancel(ctx, ev)
	default:
		c.reply(ctx, ev, msgConfirmMenu)
	}
}

func (c *Controller) handleMethodChoice(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	data := sess.Data
	option, err := strconv.Atoi(input)
	if err != nil {
		c.reply(ctx, ev, methodListPrompt(data.Methods))
		return
	}

	switch {
	case option >= 1 && option <= len(data.Methods):
		data.Method = &data.Methods[option-1]
		c.showSummary(ctx, ev, data)

	case option == len(data.Methods)+1:
		c.store.Set(ev.Sender, session.StateAwaitingNewMethodName, data)
		c.reply(ctx, ev, msgWriteMethodName)

	case option == len(data.Methods)+2:
		c.cancel(ctx, ev)

	default:
		c.reply(ctx, ev, methodListPrompt(data.Methods))
	}
}

func (c *Controller) handleNewMethodName(ctx context.Context, ev whatsapp.Event, sess session.Session, input string) {
	if strings.EqualFold(input, cancelKeyword) {
		c.cancel(ctx, ev)
		return
	}
	if input == "" {
		c.reply(ctx, ev, msgWriteMethodName)
		return
	}

	created, err := c.repo.CreatePaymentMethod(ctx, input)
	if err != nil {
		c.log.Error().Err(err).Str("name", input).Msg("failed to create payment method")
		c.reply(ctx, ev, msgMethodFailed)
		return
	}

	data := sess.Data
	data.Method = created
	c.showSummary(ctx, ev, data)
}
