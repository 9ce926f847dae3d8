// Package openai is a small client for OpenAI-compatible /v1/completions
// endpoints (llama.cpp, vLLM, Ollama, hosted APIs).
package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ghosttab/logger"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

const DefaultPath = "/v1/completions"

// Request body compressions understood by the client.
const (
	CompressionNone   = ""
	CompressionBrotli = "br"
	CompressionZstd   = "zstd"
)

// CompletionRequest matches the OpenAI Completion API format
type CompletionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Suffix      string   `json:"suffix,omitempty"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	TopK        int      `json:"top_k,omitempty"`
	Stop        []string `json:"stop,omitempty"`
	N           int      `json:"n"`
	Echo        bool     `json:"echo"`
	Stream      bool     `json:"stream"`
}

type Choice struct {
	Index        int    `json:"index"`
	Text         string `json:"text"`
	FinishReason string `json:"finish_reason"`
}

// CompletionResponse matches the OpenAI Completion API response format
type CompletionResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"`
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// StreamResult is the accumulated outcome of a streaming completion
type StreamResult struct {
	Text         string
	FinishReason string
	StoppedEarly bool
}

type Options struct {
	URL         string
	Path        string // defaults to DefaultPath
	APIKey      string // sent as a bearer token when set
	Compression string // CompressionNone, CompressionBrotli or CompressionZstd
}

// Client is a reusable OpenAI-compatible API client
type Client struct {
	HTTPClient *http.Client
	opts       Options
}

func NewClient(opts Options) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("openai: url is required")
	}
	switch opts.Compression {
	case CompressionNone, CompressionBrotli, CompressionZstd:
	default:
		return nil, fmt.Errorf("openai: unsupported compression %q", opts.Compression)
	}
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	opts.URL = strings.TrimRight(opts.URL, "/")
	return &Client{
		HTTPClient: &http.Client{},
		opts:       opts,
	}, nil
}

// Endpoint is the full completion URL.
func (c *Client) Endpoint() string {
	return c.opts.URL + c.opts.Path
}

// DoCompletion sends a non-streaming completion request
func (c *Client) DoCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	req.Stream = false

	resp, err := c.send(ctx, req, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, err
	}

	var out CompletionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &out, nil
}

// DoStreamingCompletion streams a completion and stops reading once
// maxLines line breaks arrived (0 = no limit).
func (c *Client) DoStreamingCompletion(ctx context.Context, req *CompletionRequest, maxLines int) (*StreamResult, error) {
	req.Stream = true

	resp, err := c.send(ctx, req, "text/event-stream")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := decodedBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	return readStreamWithLineLimit(body, maxLines), nil
}

func readStreamWithLineLimit(body io.Reader, maxLines int) *StreamResult {
	var textBuilder strings.Builder
	var finishReason string
	lineCount := 0
	stoppedEarly := false

	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		line := scanner.Text()

		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		if line == "data: [DONE]" {
			break
		}
		jsonData, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}

		var chunk CompletionResponse
		if err := json.Unmarshal([]byte(jsonData), &chunk); err != nil {
			logger.Debug("openai stream: failed to parse chunk: %v", err)
			continue
		}
		if len(chunk.Choices) == 0 {
			continue
		}

		text := chunk.Choices[0].Text
		textBuilder.WriteString(text)
		if chunk.Choices[0].FinishReason != "" {
			finishReason = chunk.Choices[0].FinishReason
		}

		lineCount += strings.Count(text, "\n")
		if maxLines > 0 && lineCount >= maxLines {
			stoppedEarly = true
			logger.Debug("openai stream: stopping early at %d lines (max: %d)", lineCount, maxLines)
			break
		}
	}

	if err := scanner.Err(); err != nil {
		logger.Debug("openai stream: scanner error: %v", err)
	}

	return &StreamResult{
		Text:         textBuilder.String(),
		FinishReason: finishReason,
		StoppedEarly: stoppedEarly,
	}
}

// send encodes req, compresses it when configured and checks the status.
// The caller closes the body.
func (c *Client) send(ctx context.Context, req *CompletionRequest, accept string) (*http.Response, error) {
	// no HTML escaping: prompts are code
	var jsonBuf bytes.Buffer
	encoder := json.NewEncoder(&jsonBuf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(req); err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	payload, err := compress(c.opts.Compression, jsonBuf.Bytes())
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("Accept-Encoding", "br, zstd, gzip")
	if c.opts.Compression != CompressionNone {
		httpReq.Header.Set("Content-Encoding", c.opts.Compression)
	}
	if c.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		body, _ := readBody(resp)
		return nil, fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}
	return resp, nil
}

func compress(encoding string, data []byte) ([]byte, error) {
	switch encoding {
	case CompressionBrotli:
		// quality 1: requests are latency bound
		var buf bytes.Buffer
		w := brotli.NewWriterLevel(&buf, 1)
		if _, err := w.Write(data); err != nil {
			return nil, fmt.Errorf("failed to compress request: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, fmt.Errorf("failed to close brotli writer: %w", err)
		}
		return buf.Bytes(), nil

	case CompressionZstd:
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
		defer enc.Close()
		return enc.EncodeAll(data, nil), nil

	default:
		return data, nil
	}
}

// decodedBody wraps the response body according to its Content-Encoding.
// gzip is handled by net/http itself.
func decodedBody(resp *http.Response) (io.ReadCloser, error) {
	switch resp.Header.Get("Content-Encoding") {
	case CompressionBrotli:
		return io.NopCloser(brotli.NewReader(resp.Body)), nil
	case CompressionZstd:
		dec, err := zstd.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
		}
		return dec.IOReadCloser(), nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

func readBody(resp *http.Response) ([]byte, error) {
	body, err := decodedBody(resp)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}
