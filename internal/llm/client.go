package llm

import (
	"context"
	"errors"
	"fmt"
	"net"

	"contractiq/internal/config"
	"contractiq/internal/model"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rs/zerolog/log"
)

const systemPrompt = "You are a contract analysis expert. Extract information and return only valid JSON."

// Completer is the reasoning service consumed by the structured extractor.
// It is a black box: no retry policy lives here, the executor owns all
// retries. Errors come back classified Transient or Permanent.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Client calls an OpenAI-compatible chat completions API
type Client struct {
	client      openai.Client
	model       string
	temperature float64
}

// NewClient builds a Completer from config. BaseURL switches the endpoint to
// any OpenAI-compatible provider.
func NewClient(cfg config.LLMConfig) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm api key not set")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = 0.1
	}

	return &Client{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		temperature: temperature,
	}, nil
}

// Complete sends one prompt and returns the raw completion text
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(c.temperature),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", classifyTransportError(err)
	}

	if len(completion.Choices) == 0 {
		return "", model.Errorf(model.KindMalformedResponse, "no completion choices returned")
	}

	content := completion.Choices[0].Message.Content

	log.Debug().
		Str("model", string(completion.Model)).
		Int64("totalTokens", completion.Usage.TotalTokens).
		Msg("Completion received")

	return content, nil
}

// classifyTransportError maps API failures to the retry taxonomy: timeouts,
// rate limits and server errors are Transient; client errors are Permanent.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.NewProcessingError(model.KindTransient, "reasoning service call timed out", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.NewProcessingError(model.KindTransient, "reasoning service network timeout", err)
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == 429 || apiErr.StatusCode >= 500:
			return model.NewProcessingError(model.KindTransient,
				fmt.Sprintf("reasoning service returned %d", apiErr.StatusCode), err)
		default:
			return model.NewProcessingError(model.KindPermanent,
				fmt.Sprintf("reasoning service rejected request with %d", apiErr.StatusCode), err)
		}
	}

	// Connection resets and DNS failures land here
	return model.NewProcessingError(model.KindTransient, "reasoning service call failed", err)
}
