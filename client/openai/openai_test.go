package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	c, err := NewClient(opts)
	require.NoError(t, err)
	return c
}

// decodeRequest reads a request body honoring Content-Encoding.
func decodeRequest(t *testing.T, r *http.Request) CompletionRequest {
	t.Helper()

	var body io.Reader = r.Body
	switch r.Header.Get("Content-Encoding") {
	case "br":
		body = brotli.NewReader(r.Body)
	case "zstd":
		dec, err := zstd.NewReader(r.Body)
		require.NoError(t, err)
		defer dec.Close()
		body = dec
	}

	var req CompletionRequest
	require.NoError(t, json.NewDecoder(body).Decode(&req))
	return req
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(Options{})
	assert.Error(t, err, "url required")

	_, err = NewClient(Options{URL: "http://x", Compression: "gzip"})
	assert.Error(t, err, "unknown compression")

	c := newTestClient(t, Options{URL: "http://localhost:8000/"})
	assert.Equal(t, "http://localhost:8000/v1/completions", c.Endpoint())

	c = newTestClient(t, Options{URL: "http://localhost:8000", Path: "/completion"})
	assert.Equal(t, "http://localhost:8000/completion", c.Endpoint())
}

func TestDoCompletion_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/completions", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Empty(t, r.Header.Get("Authorization"), "no key, no header")
		assert.Empty(t, r.Header.Get("Content-Encoding"))

		req := decodeRequest(t, r)
		assert.False(t, req.Stream)
		assert.Equal(t, "<div>", req.Prompt, "prompt not HTML escaped")

		json.NewEncoder(w).Encode(CompletionResponse{
			ID:      "test-id",
			Model:   req.Model,
			Choices: []Choice{{Text: "completion text", FinishReason: "stop"}},
		})
	}))
	defer server.Close()

	client := newTestClient(t, Options{URL: server.URL})
	resp, err := client.DoCompletion(context.Background(), &CompletionRequest{
		Model:  "test-model",
		Prompt: "<div>",
	})

	require.NoError(t, err)
	assert.Equal(t, "test-id", resp.ID)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "completion text", resp.Choices[0].Text)
	assert.Equal(t, "stop", resp.Choices[0].FinishReason)
}

func TestDoCompletion_BearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		w.Write([]byte(`{"choices":[{"text":"ok"}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, Options{URL: server.URL, APIKey: "sk-test"})
	resp, err := client.DoCompletion(context.Background(), &CompletionRequest{Prompt: "x"})

	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Choices[0].Text)
}

func TestDoCompletion_CompressedRequest(t *testing.T) {
	for _, encoding := range []string{CompressionBrotli, CompressionZstd} {
		t.Run(encoding, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, encoding, r.Header.Get("Content-Encoding"))
				req := decodeRequest(t, r)
				assert.Equal(t, "func main() {", req.Prompt)
				w.Write([]byte(`{"choices":[{"text":"}"}]}`))
			}))
			defer server.Close()

			client := newTestClient(t, Options{URL: server.URL, Compression: encoding})
			resp, err := client.DoCompletion(context.Background(), &CompletionRequest{Prompt: "func main() {"})

			require.NoError(t, err)
			assert.Equal(t, "}", resp.Choices[0].Text)
		})
	}
}

func TestDoCompletion_CompressedResponse(t *testing.T) {
	payload := []byte(`{"id":"br-id","choices":[{"text":"decoded"}]}`)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		bw := brotli.NewWriter(&buf)
		bw.Write(payload)
		bw.Close()

		w.Header().Set("Content-Encoding", "br")
		w.Write(buf.Bytes())
	}))
	defer server.Close()

	client := newTestClient(t, Options{URL: server.URL})
	resp, err := client.DoCompletion(context.Background(), &CompletionRequest{Prompt: "x"})

	require.NoError(t, err)
	assert.Equal(t, "br-id", resp.ID)
	assert.Equal(t, "decoded", resp.Choices[0].Text)
}

func TestDoCompletion_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("server error"))
	}))
	defer server.Close()

	client := newTestClient(t, Options{URL: server.URL})
	_, err := client.DoCompletion(context.Background(), &CompletionRequest{Prompt: "hello"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "server error")
}

func TestDoCompletion_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("not json"))
	}))
	defer server.Close()

	client := newTestClient(t, Options{URL: server.URL})
	_, err := client.DoCompletion(context.Background(), &CompletionRequest{Prompt: "hello"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode")
}

func TestDoCompletion_ContextCanceled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := newTestClient(t, Options{URL: server.URL})
	_, err := client.DoCompletion(ctx, &CompletionRequest{Prompt: "hello"})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func sseServer(t *testing.T, chunks []string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := decodeRequest(t, r)
		assert.True(t, req.Stream)
		assert.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, ": keep-alive\n\n")
		for _, c := range chunks {
			data, _ := json.Marshal(CompletionResponse{Choices: []Choice{{Text: c}}})
			fmt.Fprintf(w, "data: %s\n\n", data)
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"text\":\"\",\"finish_reason\":\"stop\"}]}\n\n")
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
}

func TestDoStreamingCompletion(t *testing.T) {
	server := sseServer(t, []string{"fmt.", "Println", "(x)"})
	defer server.Close()

	client := newTestClient(t, Options{URL: server.URL})
	res, err := client.DoStreamingCompletion(context.Background(), &CompletionRequest{Prompt: "x"}, 0)

	require.NoError(t, err)
	assert.Equal(t, "fmt.Println(x)", res.Text)
	assert.Equal(t, "stop", res.FinishReason)
	assert.False(t, res.StoppedEarly)
}

func TestDoStreamingCompletion_LineLimit(t *testing.T) {
	server := sseServer(t, []string{"a := 1", "\n", "b := 2\n", "c := 3"})
	defer server.Close()

	client := newTestClient(t, Options{URL: server.URL})
	res, err := client.DoStreamingCompletion(context.Background(), &CompletionRequest{Prompt: "x"}, 1)

	require.NoError(t, err)
	assert.Equal(t, "a := 1\n", res.Text)
	assert.True(t, res.StoppedEarly)
	assert.Empty(t, res.FinishReason)
}

func TestReadStreamWithLineLimit_SkipsMalformed(t *testing.T) {
	body := "event: ping\n" +
		"data: {broken\n" +
		"data: {\"choices\":[]}\n" +
		"data: {\"choices\":[{\"text\":\"ok\"}]}\n"

	res := readStreamWithLineLimit(bytes.NewBufferString(body), 0)

	assert.Equal(t, "ok", res.Text)
}
