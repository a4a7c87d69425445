package whatsapp

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/epieletronica-png/wa-ia/internal/domain"
)

// webhookPayload mirrors the parts of the Cloud API notification envelope
// that carry user messages.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string `json:"field"`
			Value struct {
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseWebhook extracts the inbound text messages from a notification body.
// Status updates and non-text messages are skipped.
func ParseWebhook(body []byte) ([]domain.Inbound, error) {
	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode webhook payload: %w", err)
	}

	var out []domain.Inbound
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Type != "text" || msg.Text == nil || msg.From == "" {
					continue
				}
				ts, _ := strconv.ParseInt(msg.Timestamp, 10, 64)
				out = append(out, domain.Inbound{
					ID:        msg.ID,
					From:      msg.From,
					Text:      msg.Text.Body,
					Timestamp: ts,
				})
			}
		}
	}
	return out, nil
}
