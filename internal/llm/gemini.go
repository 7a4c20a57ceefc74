package llm

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/swasthya-labs/arogya-bot/internal/utils"
)

const (
	defaultMaxAttempts = 3
	defaultCallTimeout = 30 * time.Second
)

// Generator abstracts the text-generation call so callers can be tested
// against a fake.
type Generator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, prompt string) (string, error)

func (f GeneratorFunc) GenerateText(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// MultiKeyClient wraps multiple Gemini clients with round-robin key rotation.
// This distributes API requests across multiple keys to avoid rate limits.
type MultiKeyClient struct {
	clients     []*genai.Client
	model       string
	keyIndex    uint64 // atomic counter for round-robin selection
	maxAttempts int
	callTimeout time.Duration
}

// NewMultiKeyClient creates a Gemini text client that rotates between
// multiple API keys.
func NewMultiKeyClient(ctx context.Context, apiKeys []string, modelName string) (*MultiKeyClient, error) {
	if len(apiKeys) == 0 {
		return nil, fmt.Errorf("at least one API key is required")
	}

	clients := make([]*genai.Client, len(apiKeys))
	for i, key := range apiKeys {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  key,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client for key %d: %w", i+1, err)
		}
		clients[i] = client
	}

	utils.Zlog.Info("Created multi-key Gemini client with round-robin rotation",
		zap.Int("key_count", len(apiKeys)),
		zap.String("model", modelName))

	return &MultiKeyClient{
		clients:     clients,
		model:       modelName,
		maxAttempts: defaultMaxAttempts,
		callTimeout: defaultCallTimeout,
	}, nil
}

// getNextClient returns the next client using round-robin selection.
// Thread-safe: uses atomic operations to ensure fair distribution.
func (m *MultiKeyClient) getNextClient() *genai.Client {
	if len(m.clients) == 1 {
		return m.clients[0]
	}
	idx := atomic.AddUint64(&m.keyIndex, 1)
	return m.clients[idx%uint64(len(m.clients))]
}

// GenerateText sends a prompt to Gemini and returns the response text,
// retrying transient failures up to maxAttempts across rotated keys.
func (m *MultiKeyClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, m.callTimeout)
		resp, err := m.getNextClient().Models.GenerateContent(callCtx, m.model, genai.Text(prompt), nil)
		cancel()

		if err != nil {
			lastErr = err
			utils.Zlog.Warn("Gemini call failed",
				zap.Int("attempt", attempt),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
			continue
		}

		text := resp.Text()
		if text == "" {
			lastErr = fmt.Errorf("empty response from model")
			continue
		}
		return text, nil
	}

	return "", fmt.Errorf("gemini call failed after %d attempts: %w", m.maxAttempts, lastErr)
}
