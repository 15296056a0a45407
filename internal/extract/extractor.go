// Package extract wraps the Gemini calls that turn a raw message into a
// first-pass structured guess, and a receipt image into text.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"github.com/ndavila/comprobantes-bot/internal/model"
)

// DefaultModelName is the Gemini model used for extraction and OCR.
const DefaultModelName = "gemini-2.0-flash"

// ErrUnparseable marks a model response that is not well-formed structured
// data. The flow layer turns it into a "could not interpret" reply.
var ErrUnparseable = fmt.Errorf("extraction response is not valid JSON")

const extractionPrompt = `You are an assistant that interprets payment receipts, financial documents and short messages, mostly written in Spanish, and extracts accounting information.

Analyze the text and output STRICT JSON (no comments, no extra text, no Markdown fences) with exactly these fields:

{
  "payee_name": string or "",       // person or entity the money moved to/from
  "amount": number,                 // amount without currency symbols, 0 if unknown
  "date": string or "",             // "dd/mm/yyyy"
  "time": string or "",             // "hh:mm", 24h
  "movement_type": string or "",    // only "income" or "expense"
  "payment_method": string or "",   // e.g. "Mercado Pago", "Transferencia", "Efectivo"
  "reference": string or "",        // reference code if present
  "operation_number": string or "", // operation or receipt number
  "note": string or ""              // additional context
}

Rules:
- Keywords like "pago", "pagaste a", "transferencia enviada" indicate expense.
- Keywords like "recibiste", "te enviaron", "devolucion", "reembolso" indicate income.
- Output must begin with "{" and end with "}".

Text to analyze:
`

// Service holds the Gemini client shared by extraction and recognition.
type Service struct {
	client    *genai.Client
	modelName string
	log       zerolog.Logger
}

func NewService(ctx context.Context, apiKey string, log zerolog.Logger) (*Service, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &Service{
		client:    client,
		modelName: DefaultModelName,
		log:       log,
	}, nil
}

// Extract sends rawText to the model and parses the strict-JSON reply into
// an Extraction. A reply that is not valid JSON yields ErrUnparseable.
func (s *Service) Extract(ctx context.Context, rawText string) (*model.Extraction, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: extractionPrompt + rawText},
			},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.modelName, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	clean := cleanModelJSON(raw)

	var extraction model.Extraction
	if err := json.Unmarshal([]byte(clean), &extraction); err != nil {
		s.log.Warn().Str("raw", raw).Msg("extraction response was not valid JSON")
		return nil, ErrUnparseable
	}
	return &extraction, nil
}

// Recognize transcribes the text found in an image or document. Failures
// degrade to an empty string at the call site, never to a dropped turn.
func (s *Service) Recognize(ctx context.Context, data []byte, mimeType string) (string, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: "Transcribe all the text visible in this document, preserving line breaks. Output only the transcribed text."},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     data,
					},
				},
			},
		},
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.modelName, contents, nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}

// cleanModelJSON strips Markdown fences and surrounding junk when the model
// ignores the formatting instructions.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	// Keep only the outermost object if junk remains around it.
	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end != -1 && end > start {
			s = strings.TrimSpace(s[start : end+1])
		}
	}
	return s
}
