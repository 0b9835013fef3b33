package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"
)

const (
	ProviderAnthropic     = "anthropic"
	DefaultAnthropicModel = anthropic.ModelClaudeSonnet4_0

	defaultMaxOutputTokens = 8192
)

// MessageSender sends a message to the Anthropic API
type MessageSender interface {
	SendMessage(ctx context.Context, params anthropic.MessageNewParams) (anthropic.Message, error)
}

// StreamingMessageSender streams the response and accumulates it into a single message, which avoids request
// timeouts on long outputs
type StreamingMessageSender struct {
	client anthropic.Client
	logger *zap.Logger
}

func NewStreamingMessageSender(client anthropic.Client, logger *zap.Logger) StreamingMessageSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return StreamingMessageSender{
		client: client,
		logger: logger,
	}
}

func (sms StreamingMessageSender) SendMessage(ctx context.Context, params anthropic.MessageNewParams) (anthropic.Message, error) {
	stream := sms.client.Messages.NewStreaming(ctx, params)
	response := anthropic.Message{}
	for stream.Next() {
		event := stream.Current()
		err := response.Accumulate(event)
		if err != nil {
			return anthropic.Message{}, fmt.Errorf("failed to accumulate response content stream: %w", err)
		}
	}
	if stream.Err() != nil {
		return anthropic.Message{}, fmt.Errorf("failed to stream response: %w", stream.Err())
	}
	if response.StopReason == "" {
		b, err := json.Marshal(response)
		if err != nil {
			sms.logger.Warn("failed to marshal corrupt message for inspection", zap.Error(err))
		}
		return anthropic.Message{}, fmt.Errorf("malformed message: %v", string(b))
	}

	return response, nil
}

// AnthropicCompleter answers prompts with Claude models
type AnthropicCompleter struct {
	sender          MessageSender
	model           anthropic.Model
	maxOutputTokens int64
}

// NewAnthropicCompleter creates a completer on top of sender. An empty model selects DefaultAnthropicModel
func NewAnthropicCompleter(sender MessageSender, model string) *AnthropicCompleter {
	m := anthropic.Model(model)
	if model == "" {
		m = DefaultAnthropicModel
	}
	return &AnthropicCompleter{
		sender:          sender,
		model:           m,
		maxOutputTokens: defaultMaxOutputTokens,
	}
}

func (ac *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     ac.model,
		MaxTokens: ac.maxOutputTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	msg, err := ac.sender.SendMessage(ctx, params)
	if err != nil {
		return "", anthropicError(err)
	}
	return messageText(msg), nil
}

// messageText joins the text blocks of msg
func messageText(msg anthropic.Message) string {
	var parts []string
	for _, block := range msg.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

func anthropicError(err error) error {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return &APIError{Provider: ProviderAnthropic, StatusCode: apiErr.StatusCode, Message: apiErr.RawJSON(), Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &APIError{Provider: ProviderAnthropic, Message: err.Error(), Err: err}
}
