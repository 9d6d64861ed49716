package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

const (
	// OpenRouterBaseURL is the OpenRouter chat completions base URL.
	OpenRouterBaseURL = "https://openrouter.ai/api/v1"

	// DefaultModel is the default completion model.
	DefaultModel = "qwen/qwen-2.5-72b-instruct"

	// DefaultTimeout is the per-request timeout.
	DefaultTimeout = 60 * time.Second

	// DefaultTemperature is the sampling temperature for generation.
	DefaultTemperature = 0.7

	// DefaultMaxTokens bounds completion length.
	DefaultMaxTokens = 2000

	// requestsPerSecond keeps the client under OpenRouter's free-tier limits.
	requestsPerSecond = 2.0

	// apiPathChatCompletions is the chat completions endpoint.
	apiPathChatCompletions = "/chat/completions"

	// systemPrompt pins the model to the historical-linguist role and a
	// JSON-only response contract the parser depends on.
	systemPrompt = "You are a historical linguist and etymologist specializing in semantic evolution. Respond ONLY with valid JSON."
)

// OpenRouterClient is a rate-limited Completer backed by the OpenRouter
// chat completions API.
type OpenRouterClient struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	apiKey      string
	baseURL     string
	model       string
	temperature float64
	maxTokens   int
	referer     string
	appName     string
}

// OpenRouterOption configures an OpenRouterClient.
type OpenRouterOption func(*OpenRouterClient)

// WithAPIKey sets the API key for authenticated requests.
func WithAPIKey(key string) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.apiKey = key
	}
}

// WithModel sets the completion model.
func WithModel(model string) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.model = model
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithAttribution sets the HTTP-Referer and X-Title headers OpenRouter uses
// for app attribution.
func WithAttribution(referer, appName string) OpenRouterOption {
	return func(c *OpenRouterClient) {
		c.referer = referer
		c.appName = appName
	}
}

// NewOpenRouterClient creates a new OpenRouter completion client.
func NewOpenRouterClient(opts ...OpenRouterOption) *OpenRouterClient {
	c := &OpenRouterClient{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		limiter:     rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		baseURL:     OpenRouterBaseURL,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}

	// Check for API key in environment
	if key := os.Getenv("OPENROUTER_API_KEY"); key != "" {
		c.apiKey = key
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Identity returns the vendor/model identifier used in cache keys.
func (c *OpenRouterClient) Identity() string {
	return "openrouter/" + c.model
}

// Complete sends a prompt to the chat completions endpoint and returns the
// raw completion text.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: OPENROUTER_API_KEY not set", ErrAuth)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("waiting for rate limiter: %w", err)
	}

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+apiPathChatCompletions, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.appName != "" {
		req.Header.Set("X-Title", c.appName)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", classifyStatus(resp.StatusCode, decodeAPIError(resp))
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrInvalidResponse, err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("%w: empty completion", ErrInvalidResponse)
	}

	return result.Choices[0].Message.Content, nil
}

// classifyStatus maps HTTP status codes onto the package error taxonomy.
func classifyStatus(status int, apiErr *APIError) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: %v", ErrAuth, apiErr)
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %v", ErrRateLimited, apiErr)
	case status >= 500:
		return fmt.Errorf("%w: %v", ErrUnavailable, apiErr)
	default:
		return apiErr
	}
}

// decodeAPIError extracts an APIError from a non-200 response body.
func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode, Message: resp.Status}

	var body struct {
		Error struct {
			Code    json.Number `json:"code"`
			Message string      `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Message != "" {
		apiErr.Code = body.Error.Code.String()
		apiErr.Message = body.Error.Message
	}

	return apiErr
}

// chatMessage is a single message in a chat completions request.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// chatRequest is the request body for the chat completions API.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

// chatResponse is the response from the chat completions API.
type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}
