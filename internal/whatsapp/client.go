// Package whatsapp is the message transport: outbound text over the
// WhatsApp Cloud API and decoding of inbound webhook envelopes.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultAPIURL is the Graph API base used when none is configured.
const DefaultAPIURL = "https://graph.facebook.com/v20.0"

// ErrEmptyMessage is returned when asked to send a blank text.
var ErrEmptyMessage = errors.New("whatsapp: empty message")

// Client sends text messages through the WhatsApp Cloud API.
type Client struct {
	apiURL        string
	phoneNumberID string
	token         string
	httpClient    *http.Client
}

// NewClient creates a Cloud API client for one business phone number.
func NewClient(apiURL, phoneNumberID, token string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		apiURL:        strings.TrimSuffix(apiURL, "/"),
		phoneNumberID: phoneNumberID,
		token:         token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type textBody struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type sendRequest struct {
	MessagingProduct string   `json:"messaging_product"`
	RecipientType    string   `json:"recipient_type"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type graphErrorResponse struct {
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Send delivers text to the WhatsApp user identified by to.
func (c *Client) Send(ctx context.Context, to, text string) error {
	if strings.TrimSpace(text) == "" {
		return ErrEmptyMessage
	}

	body, err := json.Marshal(sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text:             textBody{Body: text},
	})
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	url := c.apiURL + "/" + c.phoneNumberID + "/messages"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var errResp graphErrorResponse
	if err := json.Unmarshal(respBody, &errResp); err == nil && errResp.Error != nil {
		return fmt.Errorf("whatsapp API error [%d]: %s (code %d)", resp.StatusCode, errResp.Error.Message, errResp.Error.Code)
	}
	return fmt.Errorf("whatsapp API error [%d]: %s", resp.StatusCode, string(respBody))
}
