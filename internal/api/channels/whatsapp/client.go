package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/swasthya-labs/arogya-bot/internal/types"
)

const metaGraphAPIBaseURL = "https://graph.facebook.com/v21.0"

// Meta caps interactive messages at 3 buttons and 10 list rows.
const (
	maxButtons  = 3
	maxListRows = 10
)

// Client sends messages through the Meta Graph API. It is the Sender used by
// both the conversation router and the alert dispatcher.
type Client struct {
	baseURL       string
	phoneNumberID string
	accessToken   string
	httpClient    *http.Client
}

func NewClient(phoneNumberID, accessToken string) *Client {
	return &Client{
		baseURL:       metaGraphAPIBaseURL,
		phoneNumberID: phoneNumberID,
		accessToken:   accessToken,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type messageRequest struct {
	MessagingProduct string              `json:"messaging_product"`
	RecipientType    string              `json:"recipient_type"`
	To               string              `json:"to"`
	Type             string              `json:"type"`
	Text             *textContent        `json:"text,omitempty"`
	Interactive      *interactiveContent `json:"interactive,omitempty"`
}

type textContent struct {
	PreviewURL bool   `json:"preview_url"`
	Body       string `json:"body"`
}

type interactiveContent struct {
	Type   string             `json:"type"`
	Body   *interactiveBody   `json:"body"`
	Action *interactiveAction `json:"action"`
}

type interactiveBody struct {
	Text string `json:"text"`
}

type interactiveAction struct {
	Buttons  []interactiveButton  `json:"buttons,omitempty"`
	Button   string               `json:"button,omitempty"`
	Sections []interactiveSection `json:"sections,omitempty"`
}

type interactiveButton struct {
	Type  string            `json:"type"`
	Reply interactiveChoice `json:"reply"`
}

type interactiveChoice struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type interactiveSection struct {
	Title string           `json:"title"`
	Rows  []interactiveRow `json:"rows"`
}

type interactiveRow struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

type messageResponse struct {
	MessagingProduct string `json:"messaging_product"`
	Messages         []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

// SendText sends a plain text message and returns the Meta message ID.
func (c *Client) SendText(ctx context.Context, to, body string) (string, error) {
	req := &messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "text",
		Text: &textContent{
			PreviewURL: false,
			Body:       body,
		},
	}
	return c.send(ctx, req)
}

// SendButtons sends an interactive reply-button message.
func (c *Client) SendButtons(ctx context.Context, to, body string, buttons []types.Button) (string, error) {
	if len(buttons) > maxButtons {
		buttons = buttons[:maxButtons]
	}

	action := &interactiveAction{}
	for _, b := range buttons {
		action.Buttons = append(action.Buttons, interactiveButton{
			Type:  "reply",
			Reply: interactiveChoice{ID: b.ID, Title: b.Title},
		})
	}

	req := &messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &interactiveContent{
			Type:   "button",
			Body:   &interactiveBody{Text: body},
			Action: action,
		},
	}
	return c.send(ctx, req)
}

// SendList sends an interactive list message.
func (c *Client) SendList(ctx context.Context, to, body, buttonLabel string, sections []types.ListSection) (string, error) {
	action := &interactiveAction{Button: buttonLabel}
	total := 0
	for _, s := range sections {
		sec := interactiveSection{Title: s.Title}
		for _, row := range s.Rows {
			if total >= maxListRows {
				break
			}
			sec.Rows = append(sec.Rows, interactiveRow{
				ID:          row.ID,
				Title:       row.Title,
				Description: row.Description,
			})
			total++
		}
		if len(sec.Rows) > 0 {
			action.Sections = append(action.Sections, sec)
		}
	}

	req := &messageRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               to,
		Type:             "interactive",
		Interactive: &interactiveContent{
			Type:   "list",
			Body:   &interactiveBody{Text: body},
			Action: action,
		},
	}
	return c.send(ctx, req)
}

func (c *Client) send(ctx context.Context, body *messageRequest) (string, error) {
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var errBody map[string]interface{}
		json.NewDecoder(resp.Body).Decode(&errBody)
		return "", fmt.Errorf("meta API error (status %d): %v", resp.StatusCode, errBody)
	}

	var msgResp messageResponse
	if err := json.NewDecoder(resp.Body).Decode(&msgResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if len(msgResp.Messages) == 0 {
		return "", fmt.Errorf("no message ID returned from Meta API")
	}
	return msgResp.Messages[0].ID, nil
}
