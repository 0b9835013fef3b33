package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	ProviderGemini     = "gemini"
	DefaultGeminiModel = "gemini-2.0-flash"
)

// GeminiCompleter answers prompts with Google's Gemini models
type GeminiCompleter struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

// NewGeminiCompleter creates a Gemini client for the given model. An empty model selects DefaultGeminiModel
func NewGeminiCompleter(ctx context.Context, apiKey string, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiCompleter{
		client: client,
		model:  client.GenerativeModel(model),
	}, nil
}

func (gc *GeminiCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := gc.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", geminiError(err)
	}
	return responseText(resp)
}

// Close releases the underlying client
func (gc *GeminiCompleter) Close() error {
	return gc.client.Close()
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &APIError{Provider: ProviderGemini, Message: "response contained no candidates"}
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return sb.String(), nil
}

func geminiError(err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		msg := gerr.Message
		if msg == "" {
			msg = gerr.Body
		}
		return &APIError{Provider: ProviderGemini, StatusCode: gerr.Code, Message: msg, Err: err}
	}
	var blocked *genai.BlockedError
	if errors.As(err, &blocked) {
		// Retrying a blocked prompt gives the same answer
		return &APIError{Provider: ProviderGemini, StatusCode: http.StatusBadRequest, Message: blocked.Error(), Err: err}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &APIError{Provider: ProviderGemini, Message: err.Error(), Err: err}
}
