// Command setup inspects the configured Meta access token and, when asked,
// subscribes the app to message webhooks for a WhatsApp Business Account.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/joho/godotenv"
)

const graphBaseURL = "https://graph.facebook.com/v18.0"

func main() {
	var (
		wabaID    = flag.String("waba", "", "WhatsApp Business Account ID to subscribe")
		subscribe = flag.Bool("subscribe", false, "subscribe the app to message webhooks")
	)
	flag.Parse()

	_ = godotenv.Load()
	token := os.Getenv("META_ACCESS_TOKEN")
	if token == "" {
		fmt.Fprintln(os.Stderr, "META_ACCESS_TOKEN is not set")
		os.Exit(1)
	}

	if err := debugToken(token); err != nil {
		fmt.Fprintf(os.Stderr, "token check failed: %v\n", err)
		os.Exit(1)
	}

	if *subscribe {
		if *wabaID == "" {
			fmt.Fprintln(os.Stderr, "-subscribe requires -waba")
			os.Exit(1)
		}
		if err := subscribeApp(token, *wabaID); err != nil {
			fmt.Fprintf(os.Stderr, "subscription failed: %v\n", err)
			os.Exit(1)
		}
	}
}

func debugToken(token string) error {
	url := fmt.Sprintf("https://graph.facebook.com/debug_token?input_token=%s&access_token=%s", token, token)
	body, err := get(url, token)
	if err != nil {
		return err
	}
	fmt.Printf("token debug:\n%s\n", indent(body))
	return nil
}

func subscribeApp(token, wabaID string) error {
	payload, _ := json.Marshal(map[string]interface{}{
		"subscribed_fields": []string{"messages"},
	})

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/%s/subscribed_apps", graphBaseURL, wabaID), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	fmt.Printf("subscribe response:\n%s\n", indent(body))

	// Read back the configuration to confirm.
	confirm, err := get(fmt.Sprintf("%s/%s/subscribed_apps", graphBaseURL, wabaID), token)
	if err != nil {
		return err
	}
	fmt.Printf("current configuration:\n%s\n", indent(confirm))
	return nil
}

func get(url, token string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

func indent(raw []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}
