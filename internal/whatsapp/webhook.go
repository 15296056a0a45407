package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"
)

// Event is one normalized inbound user message.
type Event struct {
	Sender    string
	MessageID string
	Type      string // "text", "image" or "document"
	Text      string // message body, or the caption for media
	MediaID   string
	MimeType  string
}

// Dispatcher handles one inbound event to completion.
type Dispatcher interface {
	HandleEvent(ctx context.Context, ev Event)
}

// WebhookHandler terminates the Meta webhook: the subscription-verification
// handshake on GET and message delivery on POST.
type WebhookHandler struct {
	verifyToken string
	dispatcher  Dispatcher
	log         zerolog.Logger
}

func NewWebhookHandler(verifyToken string, dispatcher Dispatcher, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		verifyToken: verifyToken,
		dispatcher:  dispatcher,
		log:         log,
	}
}

// Register mounts the webhook routes on mux.
func (h *WebhookHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /", h.handleVerify)
	mux.HandleFunc("POST /webhook", h.handleWebhook)
}

func (h *WebhookHandler) handleVerify(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode := query.Get("hub.mode")
	token := query.Get("hub.verify_token")
	challenge := query.Get("hub.challenge")

	if mode == "subscribe" && token == h.verifyToken {
		h.log.Info().Msg("webhook verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}
	w.WriteHeader(http.StatusForbidden)
}

// webhookPayload mirrors the slice of the Cloud API notification format the
// bot consumes.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	ID   string `json:"id"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Image    *inboundMedia `json:"image"`
	Document *inboundMedia `json:"document"`
}

type inboundMedia struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type"`
	Caption  string `json:"caption"`
}

func (h *WebhookHandler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.log.Warn().Err(err).Msg("unreadable webhook payload")
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if payload.Object != "whatsapp_business_account" {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	// Each message is handled to completion before the next, matching the
	// platform's per-delivery ordering.
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				ev, ok := normalize(msg)
				if !ok {
					h.log.Debug().Str("type", msg.Type).Msg("ignoring unsupported message type")
					continue
				}
				h.dispatcher.HandleEvent(r.Context(), ev)
			}
		}
	}

	w.WriteHeader(http.StatusOK)
}

func normalize(msg inboundMessage) (Event, bool) {
	ev := Event{
		Sender:    msg.From,
		MessageID: msg.ID,
		Type:      msg.Type,
	}

	switch msg.Type {
	case "text":
		if msg.Text != nil {
			ev.Text = msg.Text.Body
		}
	case "image":
		if msg.Image == nil {
			return Event{}, false
		}
		ev.Text = msg.Image.Caption
		ev.MediaID = msg.Image.ID
		ev.MimeType = msg.Image.MimeType
	case "document":
		if msg.Document == nil {
			return Event{}, false
		}
		ev.Text = msg.Document.Caption
		ev.MediaID = msg.Document.ID
		ev.MimeType = msg.Document.MimeType
	default:
		return Event{}, false
	}
	return ev, true
}
