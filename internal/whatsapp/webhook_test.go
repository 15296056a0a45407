package whatsapp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDispatcher struct {
	events []Event
}

func (d *recordingDispatcher) HandleEvent(ctx context.Context, ev Event) {
	d.events = append(d.events, ev)
}

func newTestHandler() (*recordingDispatcher, *http.ServeMux) {
	dispatcher := &recordingDispatcher{}
	mux := http.NewServeMux()
	NewWebhookHandler("secreto", dispatcher, zerolog.Nop()).Register(mux)
	return dispatcher, mux
}

func TestVerify_EchoesChallengeOnTokenMatch(t *testing.T) {
	_, mux := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/?hub.mode=subscribe&hub.verify_token=secreto&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "12345", rec.Body.String())
}

func TestVerify_RejectsWrongToken(t *testing.T) {
	_, mux := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/?hub.mode=subscribe&hub.verify_token=otro&hub.challenge=12345", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, rec.Body.String())
}

const textPayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "changes": [{
      "value": {
        "messages": [{
          "from": "5491122334455",
          "id": "wamid.abc",
          "type": "text",
          "text": {"body": "pagué 500 a Juan Perez"}
        }]
      }
    }]
  }]
}`

func TestWebhook_DispatchesNormalizedTextEvent(t *testing.T) {
	dispatcher, mux := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(textPayload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, dispatcher.events, 1)
	ev := dispatcher.events[0]
	assert.Equal(t, "5491122334455", ev.Sender)
	assert.Equal(t, "wamid.abc", ev.MessageID)
	assert.Equal(t, "text", ev.Type)
	assert.Equal(t, "pagué 500 a Juan Perez", ev.Text)
}

const imagePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "changes": [{
      "value": {
        "messages": [{
          "from": "5491122334455",
          "id": "wamid.img",
          "type": "image",
          "image": {"id": "media-1", "mime_type": "image/jpeg", "caption": "comprobante"}
        }]
      }
    }]
  }]
}`

func TestWebhook_DispatchesImageEvent(t *testing.T) {
	dispatcher, mux := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(imagePayload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, dispatcher.events, 1)
	ev := dispatcher.events[0]
	assert.Equal(t, "image", ev.Type)
	assert.Equal(t, "media-1", ev.MediaID)
	assert.Equal(t, "image/jpeg", ev.MimeType)
	assert.Equal(t, "comprobante", ev.Text)
}

func TestWebhook_IgnoresOtherObjects(t *testing.T) {
	dispatcher, mux := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"object": "page", "entry": []}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, dispatcher.events)
}

func TestWebhook_SkipsUnsupportedMessageTypes(t *testing.T) {
	dispatcher, mux := newTestHandler()

	payload := `{
	  "object": "whatsapp_business_account",
	  "entry": [{"changes": [{"value": {"messages": [{"from": "x", "id": "y", "type": "sticker"}]}}]}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, dispatcher.events)
}
