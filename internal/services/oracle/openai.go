package oracle

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/benvon/questline/internal/logger"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"
)

const (
	// DefaultModel is the default model to use
	DefaultModel = "gpt-4o-mini"
	// DefaultBaseURL is the default OpenAI API base URL
	DefaultBaseURL = "https://api.openai.com/v1"
	// DefaultTimeout is the default timeout for API calls
	DefaultTimeout = 30 * time.Second

	structuredSystemPrompt = "You are a careful assistant that analyzes journal entries and chat messages about personal goals. Respond with valid JSON only."
	freeformSystemPrompt   = "You are a careful assistant that analyzes journal entries and chat messages about personal goals."
)

// OpenAIOracle implements Oracle using OpenAI's chat completions API.
type OpenAIOracle struct {
	client    openai.Client
	model     string
	log       *zap.Logger
	debugMode bool
}

// NewOpenAIOracle creates an OpenAI-backed oracle. The logger may be nil;
// debug previews are only emitted when both a logger and debugMode are set.
func NewOpenAIOracle(apiKey, baseURL, model string, timeout time.Duration, log *zap.Logger, debugMode bool) *OpenAIOracle {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
		option.WithBaseURL(baseURL),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
	)

	return &OpenAIOracle{
		client:    client,
		model:     model,
		log:       log,
		debugMode: debugMode,
	}
}

// Generate sends a single prompt to the model and returns the raw response
// text. Transport failures are classified into the package sentinel errors;
// no retries happen here.
func (o *OpenAIOracle) Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error) {
	systemPrompt := freeformSystemPrompt
	if opts.Structured {
		systemPrompt = structuredSystemPrompt
	}

	req := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(o.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(prompt),
		},
	}
	if opts.Structured {
		req.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}
	if opts.MaxOutputTokens > 0 {
		req.MaxTokens = openai.Int(opts.MaxOutputTokens)
	}
	if opts.Temperature != nil {
		req.Temperature = openai.Float(*opts.Temperature)
	}

	requestID := ExtractRequestID(ctx)
	if o.log != nil && o.debugMode {
		o.log.Debug("oracle_request",
			zap.String("model", o.model),
			zap.Bool("structured", opts.Structured),
			zap.Int("prompt_length", len(prompt)),
			zap.String("prompt_preview", logger.SanitizeDebugContent(prompt)),
			zap.String("request_id", requestID),
			zap.String("user_id", ExtractUserID(ctx)),
			zap.String("content_id", ExtractContentID(ctx)),
		)
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, req)
	latency := time.Since(start)

	if err != nil {
		if o.log != nil && o.debugMode {
			o.log.Debug("oracle_error",
				zap.String("model", o.model),
				zap.Error(err),
				zap.String("request_id", requestID),
				zap.Int64("latency_ms", latency.Milliseconds()),
			)
		}
		return "", classifyError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrUnavailable)
	}
	content := resp.Choices[0].Message.Content

	if o.log != nil && o.debugMode {
		o.log.Debug("oracle_response",
			zap.String("model", o.model),
			zap.Int("response_length", len(content)),
			zap.String("response_preview", logger.SanitizeDebugContent(content)),
			zap.String("request_id", requestID),
			zap.Int64("latency_ms", latency.Milliseconds()),
		)
	}

	return content, nil
}

// classifyError maps transport errors onto the package sentinels so callers
// can match with errors.Is without knowing the provider SDK.
func classifyError(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if apiErr := ExtractAPIError(err); apiErr != nil {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("%w: %v", ErrRateLimited, apiErr)
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, apiErr)
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// RegisterOpenAI registers the OpenAI provider with the registry.
func RegisterOpenAI(registry *Registry) {
	registry.Register("openai", func(config map[string]string) (Oracle, error) {
		apiKey, ok := config["api_key"]
		if !ok || apiKey == "" {
			return nil, fmt.Errorf("openai api_key is required")
		}
		return NewOpenAIOracle(apiKey, config["base_url"], config["model"], 0, nil, false), nil
	})
}
