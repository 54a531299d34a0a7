package modelclient

import (
	"context"
	"fmt"
	"math"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// retryBudget is the fixed retry count §5 "Cancellation & timeouts"
// gives model requests: three attempts, exponential backoff on
// rate-limit signals, a short fixed delay on other transient errors.
const retryBudget = 3

// OpenAIClient adapts github.com/sashabaranov/go-openai to the
// modelclient.Client interface. It is built with the library's default
// configuration, so requests go to the library's default base URL; no
// other endpoint can be selected.
type OpenAIClient struct {
	inner *openai.Client
	model string
	key   string
}

// NewOpenAIClient builds a client for the given API key and model
// name. An empty key yields a client whose Available() is false.
// Grouper and Fixer check Available() before calling Complete, the
// orchestrator skips LOCALIZE→FIX when RunFlags.ModelEnabled is false,
// and Complete itself returns an error when the client is unavailable.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	c := &OpenAIClient{key: apiKey, model: model}
	if apiKey != "" {
		c.inner = openai.NewClient(apiKey)
	}
	return c
}

// Available reports whether an API key was configured.
func (c *OpenAIClient) Available() bool {
	return c.key != "" && c.inner != nil
}

// Complete issues a chat completion request, retrying up to
// retryBudget times on transient failure.
func (c *OpenAIClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Available() {
		return "", fmt.Errorf("modelclient: no API key configured")
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt},
		},
	}

	var lastErr error
	for attempt := 0; attempt < retryBudget; attempt++ {
		if attempt > 0 {
			if err := sleepBackoff(ctx, attempt, lastErr); err != nil {
				return "", err
			}
		}

		resp, err := c.inner.CreateChatCompletion(ctx, req)
		if err == nil {
			if len(resp.Choices) == 0 {
				lastErr = fmt.Errorf("modelclient: empty response")
				continue
			}
			return resp.Choices[0].Message.Content, nil
		}
		lastErr = err
	}

	return "", fmt.Errorf("modelclient: exhausted retry budget: %w", lastErr)
}

// sleepBackoff waits before a retry: exponential backoff for
// rate-limit errors, a short fixed delay otherwise.
func sleepBackoff(ctx context.Context, attempt int, lastErr error) error {
	delay := 500 * time.Millisecond
	if isRateLimitErr(lastErr) {
		delay = time.Duration(math.Pow(2, float64(attempt))) * time.Second
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func isRateLimitErr(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *openai.APIError
	if e, ok := err.(*openai.APIError); ok {
		apiErr = e
	}
	return apiErr != nil && apiErr.HTTPStatusCode == 429
}
