// Package flow drives the conversational state machine that turns inbound
// WhatsApp messages into committed comprobantes. Every inbound event is
// dispatched by the sender's current state into exactly one handler, which
// mutates the session and emits at most one outbound prompt.
package flow

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ndavila/comprobantes-bot/internal/match"
	"github.com/ndavila/comprobantes-bot/internal/model"
	"github.com/ndavila/comprobantes-bot/internal/repository"
	"github.com/ndavila/comprobantes-bot/internal/session"
	"github.com/ndavila/comprobantes-bot/internal/whatsapp"
)

const cancelKeyword = "cancelar"

// Extractor produces a structured guess from raw text and transcribes
// images. Both calls may fail; the controller degrades gracefully.
type Extractor interface {
	Extract(ctx context.Context, rawText string) (*model.Extraction, error)
	Recognize(ctx context.Context, data []byte, mimeType string) (string, error)
}

// Messenger delivers outbound messages best-effort.
type Messenger interface {
	SendText(ctx context.Context, to, body, replyTo string) bool
	SendImage(ctx context.Context, to string, png []byte, caption string) bool
}

// MediaFetcher downloads inbound media by its platform ID.
type MediaFetcher interface {
	DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error)
}

// Controller owns the per-sender flow dispatch. Sessions are borrowed from
// the store for the duration of one HandleEvent call and never retained.
type Controller struct {
	store     *session.Store
	repo      repository.Repository
	extractor Extractor
	messenger Messenger
	media     MediaFetcher
	threshold float64
	log       zerolog.Logger

	// Per-sender serialization: duplicate webhook deliveries for one sender
	// must not interleave their read-modify-write of the session.
	mu          sync.Mutex
	senderLocks map[string]*sync.Mutex
}

func NewController(
	store *session.Store,
	repo repository.Repository,
	extractor Extractor,
	messenger Messenger,
	media MediaFetcher,
	threshold float64,
	log zerolog.Logger,
) *Controller {
	return &Controller{
		store:       store,
		repo:        repo,
		extractor:   extractor,
		messenger:   messenger,
		media:       media,
		threshold:   threshold,
		log:         log,
		senderLocks: make(map[string]*sync.Mutex),
	}
}

// ExpireNotice is the store's expiry hook: one notification per automatic
// cancellation, then the sender is observably idle again.
func (c *Controller) ExpireNotice(sender string) {
	c.messenger.SendText(context.Background(), sender, msgTimeout, "")
}

// HandleEvent processes one inbound event to completion.
func (c *Controller) HandleEvent(ctx context.Context, ev whatsapp.Event) {
	unlock := c.lockSender(ev.Sender)
	defer unlock()

	sess := c.store.Get(ev.Sender)
	c.log.Info().
		Str("sender", ev.Sender).
		Str("state", string(sess.State)).
		Str("type", ev.Type).
		Msg("handling inbound event")

	input := strings.TrimSpace(ev.Text)

	switch sess.State {
	case session.StateIdle, "":
		c.handleInitial(ctx, ev)
	case session.StateAwaitingPayeeConfirm:
		c.handlePayeeConfirm(ctx, ev, sess, input)
	case session.StateAwaitingPayeeRetry:
		c.handlePayeeRetry(ctx, ev, sess, input)
	case session.StateAwaitingPayeeChoice:
		c.handlePayeeChoice(ctx, ev, sess, input)
	case session.StateAwaitingNewPayeeName:
		c.handleNewPayeeName(ctx, ev, sess, input)
	case session.StateAwaitingMethodConfirm:
		c.handleMethodConfirm(ctx, ev, sess, input)
	case session.StateAwaitingMethodChoice:
		c.handleMethodChoice(ctx, ev, sess, input)
	case session.StateAwaitingNewMethodName:
		c.handleNewMethodName(ctx, ev, sess, input)
	case session.StateAwaitingSaveConfirm:
		c.handleSaveConfirm(ctx, ev, sess, input)
	case session.StateAwaitingModificationChoice:
		c.handleModificationChoice(ctx, ev, sess, input)
	default:
		c.log.Warn().Str("state", string(sess.State)).Msg("unhandled flow state")
		c.store.Clear(ev.Sender)
		c.reply(ctx, ev, "❓ Estado del flujo no reconocido. Intenta enviar un nuevo comprobante.")
	}
}

// handleInitial starts a new flow from an idle sender: gather text (OCR for
// media), run the extraction, then resolve the payee guess.
func (c *Controller) handleInitial(ctx context.Context, ev whatsapp.Event) {
	text := strings.TrimSpace(ev.Text)

	if keyword := strings.ToLower(text); keyword == reportKeyword {
		c.sendMonthlyReport(ctx, ev)
		return
	}

	if ev.Type == "image" || ev.Type == "document" {
		if ocrText := c.recognizeMedia(ctx, ev); ocrText != "" {
			text = ocrText
		}
	}

	if text == "" {
		c.reply(ctx, ev, msgNoTextFound)
		return
	}

	extraction, err := c.extractor.Extract(ctx, text)
	if err != nil {
		c.log.Error().Err(err).Str("sender", ev.Sender).Msg("extraction failed")
		c.reply(ctx, ev, msgCannotInterpret)
		return
	}

	data := session.Data{RawText: text, Extraction: extraction}

	m := c.resolvePayee(ctx, extraction.PayeeName)
	if m != nil {
		data.PayeeMatch = m
		c.store.Set(ev.Sender, session.StateAwaitingPayeeConfirm, data)
		c.reply(ctx, ev, payeeConfirmPrompt(m.Name))
		return
	}

	c.store.Set(ev.Sender, session.StateAwaitingPayeeRetry, data)
	c.reply(ctx, ev, msgAskPayeeUnknown)
}

// recognizeMedia downloads and transcribes inbound media. Any failure
// degrades to "" so the caption, if present, still gets a chance.
func (c *Controller) recognizeMedia(ctx context.Context, ev whatsapp.Event) string {
	data, mimeType, err := c.media.DownloadMedia(ctx, ev.MediaID)
	if err != nil {
		c.log.Error().Err(err).Str("media_id", ev.MediaID).Msg("media download failed")
		return ""
	}
	if ev.MimeType != "" {
		mimeType = ev.MimeType
	}

	text, err := c.extractor.Recognize(ctx, data, mimeType)
	if err != nil {
		c.log.Error().Err(err).Str("media_id", ev.MediaID).Msg("recognition failed")
		return ""
	}
	return text
}

// resolvePayee fuzzy-matches a name guess against the registry. An
// unreachable registry degrades to "no match" so the conversation falls
// into the disambiguation sub-flow instead of failing the turn.
func (c *Controller) resolvePayee(ctx context.Context, guess string) *match.Match {
	payees, err := c.repo.ListPayees(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("payee registry unreachable")
		return nil
	}
	return match.Resolve(guess, payees, c.threshold)
}

func (c *Controller) cancel(ctx context.Context, ev whatsapp.Event) {
	c.store.Clear(ev.Sender)
	c.reply(ctx, ev, msgCancelled)
}

func (c *Controller) reply(ctx context.Context, ev whatsapp.Event, body string) {
	c.messenger.SendText(ctx, ev.Sender, body, ev.MessageID)
}

func (c *Controller) lockSender(sender string) func() {
	c.mu.Lock()
	lock, ok := c.senderLocks[sender]
	if !ok {
		lock = &sync.Mutex{}
		c.senderLocks[sender] = lock
	}
	c.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
