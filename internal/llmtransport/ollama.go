// Package llmtransport talks to a local Ollama-compatible chat
// endpoint, in both streaming and non-streaming modes, the two ways
// the Kernel drives a turn depending on whether the agent is the main
// agent (streamed to the user) or a background sub-agent (collected
// whole).
package llmtransport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kadirpekel/agentkernel/internal/httpx"
)

const (
	defaultBaseURL   = "http://localhost:11434"
	defaultTimeout   = 300 * time.Second
	defaultKeepAlive = "5m"
)

// ChatMessage is one turn sent to or received from the chat endpoint.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []ChatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   *chatOptions  `json:"options,omitempty"`
}

type chatOptions struct {
	Temperature float64 `json:"temperature"`
}

type chatResponse struct {
	Message ChatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// Client is the Ollama chat transport.
type Client struct {
	BaseURL     string
	Model       string
	Temperature float64
	http        *httpx.Client
}

// New builds a Client targeting baseURL (defaulted when empty) for the
// given model.
func New(baseURL, model string, temperature float64) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		BaseURL:     baseURL,
		Model:       model,
		Temperature: temperature,
		http:        httpx.New(defaultTimeout, 3, 300*time.Millisecond),
	}
}

// ChunkFunc is called with each incremental piece of assistant content
// as it streams in.
type ChunkFunc func(chunk string)

// CompleteStreaming sends the conversation and streams the assistant's
// reply, invoking onChunk for every piece received, returning the full
// accumulated text once the stream signals done.
func (c *Client) CompleteStreaming(ctx context.Context, messages []ChatMessage, onChunk ChunkFunc) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.Model,
		Messages:  messages,
		Stream:    true,
		KeepAlive: defaultKeepAlive,
		Options:   &chatOptions{Temperature: c.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := c.newRequest(ctx, body)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("ollama chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(data))
	}

	var full bytes.Buffer
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk chatResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		if chunk.Message.Content != "" {
			full.WriteString(chunk.Message.Content)
			if onChunk != nil {
				onChunk(chunk.Message.Content)
			}
		}
		if chunk.Done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return full.String(), fmt.Errorf("read ollama stream: %w", err)
	}
	return full.String(), nil
}

// Complete sends the conversation and returns the assistant's full
// reply in a single, non-streamed response.
func (c *Client) Complete(ctx context.Context, messages []ChatMessage) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model:     c.Model,
		Messages:  messages,
		Stream:    false,
		KeepAlive: defaultKeepAlive,
		Options:   &chatOptions{Temperature: c.Temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := c.newRequest(ctx, body)
	if err != nil {
		return "", err
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("ollama chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode ollama response: %w", err)
	}
	return parsed.Message.Content, nil
}

func (c *Client) newRequest(ctx context.Context, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build ollama request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return req, nil
}
