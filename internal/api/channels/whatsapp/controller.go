package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/swasthya-labs/arogya-bot/internal/config"
	"github.com/swasthya-labs/arogya-bot/internal/types"
	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

// MessageHandler consumes unwrapped inbound messages. Implemented by the
// conversation router.
type MessageHandler interface {
	HandleMessage(ctx context.Context, msg types.InboundMessage) error
}

// Controller handles the Meta webhook endpoints.
type Controller struct {
	cfg     *config.Config
	handler MessageHandler
}

func NewController(cfg *config.Config, handler MessageHandler) *Controller {
	return &Controller{cfg: cfg, handler: handler}
}

// webhookPayload is the structure of a Meta webhook delivery.
type webhookPayload struct {
	Object string         `json:"object"`
	Entry  []webhookEntry `json:"entry"`
}

type webhookEntry struct {
	ID      string          `json:"id"`
	Changes []webhookChange `json:"changes"`
}

type webhookChange struct {
	Value webhookValue `json:"value"`
	Field string       `json:"field"`
}

type webhookValue struct {
	MessagingProduct string           `json:"messaging_product"`
	Metadata         webhookMetadata  `json:"metadata"`
	Contacts         []webhookContact `json:"contacts,omitempty"`
	Messages         []webhookMessage `json:"messages,omitempty"`
	Statuses         []webhookStatus  `json:"statuses,omitempty"`
}

type webhookMetadata struct {
	DisplayPhoneNumber string `json:"display_phone_number"`
	PhoneNumberID      string `json:"phone_number_id"`
}

type webhookContact struct {
	Profile struct {
		Name string `json:"name"`
	} `json:"profile"`
	WaID string `json:"wa_id"`
}

type webhookMessage struct {
	From        string            `json:"from"`
	ID          string            `json:"id"`
	Timestamp   string            `json:"timestamp"`
	Type        string            `json:"type"`
	Text        *textBody         `json:"text,omitempty"`
	Interactive *interactiveReply `json:"interactive,omitempty"`
	Image       *mediaInfo        `json:"image,omitempty"`
	Audio       *mediaInfo        `json:"audio,omitempty"`
	Document    *mediaInfo        `json:"document,omitempty"`
}

type textBody struct {
	Body string `json:"body"`
}

type interactiveReply struct {
	Type        string             `json:"type"`
	ButtonReply *interactiveChoice `json:"button_reply,omitempty"`
	ListReply   *interactiveChoice `json:"list_reply,omitempty"`
}

type mediaInfo struct {
	ID       string `json:"id"`
	MimeType string `json:"mime_type,omitempty"`
	SHA256   string `json:"sha256,omitempty"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
}

type webhookStatus struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Timestamp   string `json:"timestamp"`
	RecipientID string `json:"recipient_id"`
}

// VerifyWebhook handles Meta's subscription handshake.
// GET /whatsapp/webhook
func (c *Controller) VerifyWebhook(ctx *gin.Context) {
	mode := ctx.Query("hub.mode")
	token := ctx.Query("hub.verify_token")
	challenge := ctx.Query("hub.challenge")

	if mode == "subscribe" && token == c.cfg.WhatsAppVerifyTok && challenge != "" {
		ctx.String(http.StatusOK, challenge)
		return
	}

	utils.Zlog.Warn("Webhook verification rejected",
		zap.String("mode", mode))
	ctx.JSON(http.StatusForbidden, gin.H{
		"error": "verification_failed",
	})
}

// Webhook handles incoming message deliveries. Meta requires a fast 200, so
// the payload is acknowledged first and processed in the background.
// POST /whatsapp/webhook
func (c *Controller) Webhook(ctx *gin.Context) {
	rawBody, err := io.ReadAll(ctx.Request.Body)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "unreadable_body"})
		return
	}

	if c.cfg.WhatsAppAppSecret != "" {
		signature := ctx.GetHeader("X-Hub-Signature-256")
		if err := VerifySignature(signature, rawBody, c.cfg.WhatsAppAppSecret); err != nil {
			utils.Zlog.Warn("Webhook signature rejected", zap.Error(err))
			ctx.JSON(http.StatusForbidden, gin.H{"error": "invalid_signature"})
			return
		}
	}

	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		utils.Zlog.Error("Failed to parse webhook payload", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid_payload"})
		return
	}

	messages := unwrapMessages(&payload)
	if len(messages) == 0 {
		// Status callbacks and other non-message notifications.
		ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"status": "received"})

	go func() {
		processCtx := context.Background()
		for _, msg := range messages {
			if err := c.handler.HandleMessage(processCtx, msg); err != nil {
				utils.Zlog.Error("Failed to process WhatsApp message",
					zap.String("phone", msg.PhoneNumber),
					zap.String("message_id", msg.MessageID),
					zap.Error(err))
			}
		}
	}()
}

// unwrapMessages flattens a webhook delivery into inbound messages. A single
// delivery can batch several entries and messages.
func unwrapMessages(payload *webhookPayload) []types.InboundMessage {
	var out []types.InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				inbound, ok := unwrapMessage(msg)
				if !ok {
					utils.Zlog.Debug("Skipping unsupported message",
						zap.String("message_id", msg.ID),
						zap.String("type", msg.Type))
					continue
				}
				out = append(out, inbound)
			}
		}
	}
	return out
}

func unwrapMessage(msg webhookMessage) (types.InboundMessage, bool) {
	inbound := types.InboundMessage{
		PhoneNumber: msg.From,
		MessageID:   msg.ID,
		Timestamp:   parseTimestamp(msg.Timestamp),
	}

	switch msg.Type {
	case "text":
		if msg.Text == nil {
			return inbound, false
		}
		inbound.Type = types.MessageTypeText
		inbound.Content = msg.Text.Body
	case "interactive":
		if msg.Interactive == nil {
			return inbound, false
		}
		switch {
		case msg.Interactive.ButtonReply != nil:
			inbound.Type = types.MessageTypeButtonReply
			inbound.Content = msg.Interactive.ButtonReply.ID
		case msg.Interactive.ListReply != nil:
			inbound.Type = types.MessageTypeListReply
			inbound.Content = msg.Interactive.ListReply.ID
		default:
			return inbound, false
		}
	case "image":
		inbound.Type = types.MessageTypeImage
		inbound.Media = toMediaData(msg.Image)
	case "audio":
		inbound.Type = types.MessageTypeAudio
		inbound.Media = toMediaData(msg.Audio)
	case "document":
		inbound.Type = types.MessageTypeDocument
		inbound.Media = toMediaData(msg.Document)
	default:
		return inbound, false
	}
	return inbound, true
}

func toMediaData(info *mediaInfo) *types.MediaData {
	if info == nil {
		return nil
	}
	return &types.MediaData{
		ID:       info.ID,
		MimeType: info.MimeType,
		SHA256:   info.SHA256,
	}
}

func parseTimestamp(ts string) time.Time {
	if secs, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.Unix(secs, 0)
	}
	return time.Now()
}
