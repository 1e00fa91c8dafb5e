// Package ollama provides the HTTP client for the local model-serving endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// ErrorType categorizes client errors for handling
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeTimeout
	ErrTypeUnavailable
	ErrTypeInvalidResponse
)

// ClientError represents an error from the inference client
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Sentinel errors for easy checking
var (
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "inference request timed out"}
	ErrUnavailable = &ClientError{Type: ErrTypeUnavailable, Message: "inference server unavailable"}
)

// IsTimeout verifies whether an error is a timeout error
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsUnavailable verifies whether an error indicates the upstream could not serve
func IsUnavailable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnavailable || clientErr.Type == ErrTypeInvalidResponse
	}
	return false
}

// Config holds the inference client settings
type Config struct {
	// BaseURL of the model-serving endpoint
	BaseURL string

	// Model identifier sent with every generate request
	Model string

	// Timeout for a single generate request
	Timeout time.Duration

	// ChunkDelay is the pacing delay between simulated stream chunks
	ChunkDelay time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		BaseURL:    "http://localhost:11434",
		Model:      "gemma3n:e4b",
		Timeout:    60 * time.Second,
		ChunkDelay: 50 * time.Millisecond,
	}
}

// ConfigFromEnv builds the configuration from environment variables,
// falling back to defaults
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	if v := os.Getenv("OLLAMA_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("OLLAMA_TIMEOUT_SECONDS"); v != "" {
		if seconds, err := strconv.Atoi(v); err == nil && seconds > 0 {
			cfg.Timeout = time.Duration(seconds) * time.Second
		}
	}
	return cfg
}

// Client sends prompts to the model-serving endpoint. Safe for concurrent use.
type Client struct {
	config     *Config
	httpClient *http.Client
}

// NewClient creates a client with the given configuration
func NewClient(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}
	if config.Model == "" {
		config.Model = "gemma3n:e4b"
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}
	if config.ChunkDelay == 0 {
		config.ChunkDelay = 50 * time.Millisecond
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model        string `json:"model"`
	Response     string `json:"response"`
	CreatedAt    string `json:"created_at"`
	Done         bool   `json:"done"`
	EvalCount    int    `json:"eval_count"`
	EvalDuration int64  `json:"eval_duration"`
}

// Generate sends the prompt and returns the complete response text
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	body, err := json.Marshal(generateRequest{
		Model:  c.config.Model,
		Prompt: prompt,
		Stream: false,
	})
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeUnavailable, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeoutErr(err) {
			return "", &ClientError{Type: ErrTypeTimeout, Message: "inference request timed out", Cause: err}
		}
		return "", &ClientError{Type: ErrTypeUnavailable, Message: "inference server unreachable", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &ClientError{
			Type:    ErrTypeUnavailable,
			Message: fmt.Sprintf("generate request failed: %s", resp.Status),
		}
	}

	var result generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	if strings.TrimSpace(result.Response) == "" {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "empty response from model"}
	}

	return result.Response, nil
}

// GenerateStream obtains the full completion and delivers it as paced
// word-sized chunks through fn, in order. The upstream endpoint has no true
// token streaming; the WordChunker adapter keeps the relay unchanged if it
// ever does.
func (c *Client) GenerateStream(ctx context.Context, prompt string, fn func(chunk string)) error {
	full, err := c.Generate(ctx, prompt)
	if err != nil {
		return err
	}

	chunker := WordChunker{Delay: c.config.ChunkDelay}
	return chunker.Stream(ctx, full, fn)
}

func isTimeoutErr(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
