// Package whatsapp implements the Meta WhatsApp Cloud API boundary: the
// inbound webhook (handshake plus event normalization) and the outbound
// Graph API calls.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const defaultBaseURL = "https://graph.facebook.com/v15.0"

// Client sends messages and fetches media through the Graph API. Send
// failures are logged and swallowed: delivery is best effort and the flow
// continues regardless of confirmation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	phoneID    string
	log        zerolog.Logger
}

func NewClient(token, phoneID string, log zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
		token:      token,
		phoneID:    phoneID,
		log:        log,
	}
}

// NewClientWithBaseURL points the client at an alternate Graph endpoint.
// Used by tests.
func NewClientWithBaseURL(token, phoneID, baseURL string, log zerolog.Logger) *Client {
	c := NewClient(token, phoneID, log)
	c.baseURL = baseURL
	return c
}

// SendText delivers a text message to a sender, optionally as a reply to a
// previous message. Returns whether delivery was accepted.
func (c *Client) SendText(ctx context.Context, to, body, replyTo string) bool {
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"text":              map[string]string{"body": body},
	}
	if replyTo != "" {
		payload["context"] = map[string]string{"message_id": replyTo}
	}

	if err := c.post(ctx, fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID), payload); err != nil {
		c.log.Error().Err(err).Str("to", to).Msg("failed to send message")
		return false
	}
	return true
}

// SendImage uploads a PNG and delivers it as an image message with a
// caption. Returns whether delivery was accepted.
func (c *Client) SendImage(ctx context.Context, to string, png []byte, caption string) bool {
	mediaID, err := c.uploadMedia(ctx, png, "image/png")
	if err != nil {
		c.log.Error().Err(err).Str("to", to).Msg("failed to upload media")
		return false
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "image",
		"image": map[string]string{
			"id":      mediaID,
			"caption": caption,
		},
	}
	if err := c.post(ctx, fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneID), payload); err != nil {
		c.log.Error().Err(err).Str("to", to).Msg("failed to send image")
		return false
	}
	return true
}

// DownloadMedia resolves a media ID to its URL and fetches the content.
func (c *Client) DownloadMedia(ctx context.Context, mediaID string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/%s", c.baseURL, mediaID), nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("resolve media %s: %w", mediaID, err)
	}
	defer resp.Body.Close()

	var meta struct {
		URL      string `json:"url"`
		MimeType string `json:"mime_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, "", fmt.Errorf("decode media metadata: %w", err)
	}
	if meta.URL == "" {
		return nil, "", fmt.Errorf("media %s has no download URL", mediaID)
	}

	dlReq, err := http.NewRequestWithContext(ctx, http.MethodGet, meta.URL, nil)
	if err != nil {
		return nil, "", err
	}
	dlReq.Header.Set("Authorization", "Bearer "+c.token)

	dlResp, err := c.httpClient.Do(dlReq)
	if err != nil {
		return nil, "", fmt.Errorf("download media %s: %w", mediaID, err)
	}
	defer dlResp.Body.Close()

	if dlResp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("download media %s: HTTP %d", mediaID, dlResp.StatusCode)
	}

	data, err := io.ReadAll(dlResp.Body)
	if err != nil {
		return nil, "", err
	}
	return data, meta.MimeType, nil
}

func (c *Client) uploadMedia(ctx context.Context, data []byte, mimeType string) (string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	if err := writer.WriteField("messaging_product", "whatsapp"); err != nil {
		return "", err
	}
	if err := writer.WriteField("type", mimeType); err != nil {
		return "", err
	}
	part, err := writer.CreateFormFile("file", "chart.png")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/%s/media", c.baseURL, c.phoneID), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("upload media: HTTP %d: %s", resp.StatusCode, body)
	}

	var result struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode upload response: %w", err)
	}
	return result.ID, nil
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, respBody)
	}
	return nil
}
