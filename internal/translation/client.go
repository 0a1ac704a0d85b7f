package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/relaytranslate/relaytranslate/internal/langhint"
	"github.com/relaytranslate/relaytranslate/internal/provider/resilience"
	"github.com/relaytranslate/relaytranslate/internal/telemetry"
)

const (
	// ProviderName identifies the completion provider.
	ProviderName = "deepseek"

	// DefaultBaseURL is the DeepSeek API base URL.
	DefaultBaseURL = "https://api.deepseek.com"

	// DefaultModel is the chat model used for translation.
	DefaultModel = "deepseek-chat"

	defaultTemperature = 0.3
	defaultMaxTokens   = 1000
	defaultTimeout     = 30 * time.Second
	defaultPingTimeout = 5 * time.Second

	maxErrorBody = 4 << 10
)

// ClientConfig holds configuration for the completion client.
type ClientConfig struct {
	// APIKey is the bearer token (required).
	APIKey string

	// BaseURL is the API base URL (optional, defaults to DeepSeek).
	BaseURL string

	// Model is the chat model (optional).
	Model string

	// Temperature and MaxTokens tune the completion. Zero selects defaults.
	Temperature float64
	MaxTokens   int

	// HTTPClient is the resilient HTTP client to use (optional).
	// If nil, a single-attempt client with a 30s timeout is created.
	HTTPClient *resilience.Client

	// PingTimeout bounds the reachability probe. Default: 5 seconds.
	PingTimeout time.Duration

	// Metrics receives per-call measurements (optional).
	Metrics *telemetry.TranslationMetrics

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client translates text through an OpenAI-compatible chat completion API.
// It never retries a failed call.
type Client struct {
	apiKey      string
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *resilience.Client
	probe       *http.Client
	pingTimeout time.Duration
	metrics     *telemetry.TranslationMetrics
	logger      zerolog.Logger
}

// NewClient creates a new completion client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	pingTimeout := cfg.PingTimeout
	if pingTimeout == 0 {
		pingTimeout = defaultPingTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		rcfg := resilience.DefaultClientConfig(ProviderName)
		rcfg.Timeout = defaultTimeout
		rcfg.CircuitBreaker.OnStateChange = resilience.LogStateChange(cfg.Logger)
		httpClient = resilience.NewClient(rcfg)
	}

	return &Client{
		apiKey:      cfg.APIKey,
		endpoint:    strings.TrimRight(baseURL, "/") + "/chat/completions",
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  httpClient,
		probe:       &http.Client{Timeout: pingTimeout},
		pingTimeout: pingTimeout,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
	}
}

// CircuitState reports the breaker guarding the completion endpoint:
// "closed", "half-open" or "open".
func (c *Client) CircuitState() string {
	return c.httpClient.CircuitBreakerState().String()
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Translate translates text from source into target. Failures are returned
// as *Error.
func (c *Client) Translate(ctx context.Context, text string, source langhint.Hint, target Language) (string, error) {
	start := time.Now()

	translated, err := c.translate(ctx, text, source, target)

	kind := KindOf(err)
	c.metrics.RecordRequest(source.Code(), string(target), time.Since(start), string(kind))

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("error_kind", string(kind)).
			Str("source", source.Code()).
			Str("target", string(target)).
			Dur("duration", time.Since(start)).
			Msg("translation failed")
		return "", err
	}

	c.logger.Debug().
		Str("source", source.Code()).
		Str("target", string(target)).
		Int("chars_in", len([]rune(text))).
		Int("chars_out", len([]rune(translated))).
		Dur("duration", time.Since(start)).
		Msg("translation completed")

	return translated, nil
}

// Do runs a Request and folds the outcome into a Result.
func (c *Client) Do(ctx context.Context, req Request) Result {
	text, err := c.Translate(ctx, req.Text, req.Source, req.Target)
	if err != nil {
		return Result{ErrorKind: KindOf(err)}
	}
	return Result{Text: text, Success: true}
}

func (c *Client) translate(ctx context.Context, text string, source langhint.Hint, target Language) (string, error) {
	system, user := buildPrompt(text, source, target)

	req, err := c.newRequest(ctx, completionRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", &Error{Kind: KindNetworkFailure, Err: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Kind: classifyTransport(err), Err: fmt.Errorf("executing request: %w", err)}
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return "", err
	}

	var body completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		if kind := classifyTransport(err); kind == KindTimeout {
			return "", &Error{Kind: kind, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading response: %w", err)}
		}
		return "", &Error{Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}

	if len(body.Choices) == 0 || body.Choices[0].Message.Content == nil {
		return "", &Error{Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: errors.New("response has no completion content")}
	}

	translated := cleanCompletion(*body.Choices[0].Message.Content)
	if translated == "" {
		return "", &Error{Kind: KindMalformedResponse, StatusCode: resp.StatusCode, Err: errors.New("completion content is empty")}
	}

	return translated, nil
}

// Ping sends a 1-token completion to check that the API answers. It bypasses
// the circuit breaker and uses a short timeout.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.pingTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, completionRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: "ping"}},
		Temperature: c.temperature,
		MaxTokens:   1,
	})
	if err != nil {
		return &Error{Kind: KindNetworkFailure, Err: err}
	}

	resp, err := c.probe.Do(req)
	if err != nil {
		return &Error{Kind: classifyTransport(err), Err: fmt.Errorf("executing ping: %w", err)}
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return nil
}

func (c *Client) newRequest(ctx context.Context, payload completionRequest) (*http.Request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	return req, nil
}

// statusError returns nil for 2xx responses and a classified *Error otherwise.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return &Error{
		Kind:       classifyStatus(resp.StatusCode, body),
		StatusCode: resp.StatusCode,
		Err:        fmt.Errorf("unexpected status code: %d", resp.StatusCode),
	}
}
