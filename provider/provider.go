package provider

import (
	"context"
	"errors"
	"fmt"

	"ghosttab/client/openai"
	"ghosttab/engine"
	"ghosttab/logger"
	"ghosttab/text"
	"ghosttab/types"
	"ghosttab/utils"
)

// Compile-time check that Fetch satisfies engine.FetchFunc
var _ engine.FetchFunc = (*Provider)(nil).Fetch

// Client interface for API calls (enables mocking in tests)
type Client interface {
	DoCompletion(ctx context.Context, req *openai.CompletionRequest) (*openai.CompletionResponse, error)
	DoStreamingCompletion(ctx context.Context, req *openai.CompletionRequest, maxLines int) (*openai.StreamResult, error)
}

// Context carries data through the completion pipeline
type Context struct {
	Request  *types.CompletionRequest
	Window   utils.Window
	MaxLines int // streaming line limit (0 = no limit)
	Result   *openai.StreamResult
}

// Provider turns an editor state into a suggestion through a configurable
// pipeline: preprocessors, a prompt builder, one request, postprocessors.
type Provider struct {
	Name           string
	Config         *types.ProviderConfig
	Client         Client
	Streaming      bool
	Preprocessors  []Preprocessor
	PromptBuilder  PromptBuilder
	Postprocessors []Postprocessor
}

// NewClient builds the HTTP client described by config.
func NewClient(config *types.ProviderConfig) (*openai.Client, error) {
	return openai.NewClient(openai.Options{
		URL:         config.ProviderURL,
		Path:        config.CompletionPath,
		APIKey:      config.APIKey,
		Compression: config.Compression,
	})
}

// RequestFromState converts an editor state to line form.
func RequestFromState(st text.State) *types.CompletionRequest {
	row, col := st.Doc.Position(st.Head)
	return &types.CompletionRequest{
		Lines:     st.Doc.SplitLines(),
		CursorRow: row,
		CursorCol: col,
	}
}

// Fetch implements engine.FetchFunc. The suggestion is the current line up
// to the cursor followed by the completion, so it anchors on that line.
func (p *Provider) Fetch(ctx context.Context, st text.State) (string, error) {
	if st.Doc == nil {
		return "", nil
	}
	req := RequestFromState(st)

	completion, err := p.Complete(ctx, req)
	if err != nil || completion == "" {
		return "", err
	}
	return req.BeforeCursor() + completion, nil
}

// Complete runs the pipeline and returns the text to insert at the cursor,
// or "" when there is nothing to suggest.
func (p *Provider) Complete(ctx context.Context, req *types.CompletionRequest) (string, error) {
	defer logger.Trace(p.Name + ".Complete")()

	pctx := &Context{Request: req}

	for _, pre := range p.Preprocessors {
		if err := pre(p, pctx); err != nil {
			if errors.Is(err, ErrSkipFetch) {
				return "", nil
			}
			return "", fmt.Errorf("%s: %w", p.Name, err)
		}
	}

	completionReq := p.PromptBuilder(p, pctx)
	p.logRequest(completionReq, pctx.MaxLines)

	var result *openai.StreamResult
	if p.Streaming {
		var err error
		result, err = p.Client.DoStreamingCompletion(ctx, completionReq, pctx.MaxLines)
		if err != nil {
			return "", fmt.Errorf("%s: %w", p.Name, err)
		}
	} else {
		resp, err := p.Client.DoCompletion(ctx, completionReq)
		if err != nil {
			return "", fmt.Errorf("%s: %w", p.Name, err)
		}
		result = &openai.StreamResult{}
		if len(resp.Choices) > 0 {
			result.Text = resp.Choices[0].Text
			result.FinishReason = resp.Choices[0].FinishReason
		}
	}
	pctx.Result = result
	p.logResponse(result)

	for _, post := range p.Postprocessors {
		if !post(p, pctx) {
			return "", nil
		}
	}
	return pctx.Result.Text, nil
}

func (p *Provider) logRequest(req *openai.CompletionRequest, maxLines int) {
	logger.Debug("%s provider request:\n  URL: %s%s\n  Model: %s\n  Temperature: %.2f\n  MaxTokens: %d\n  MaxLines: %d\n  Prompt length: %d chars\n  Prompt:\n%s",
		p.Name,
		p.Config.ProviderURL,
		p.Config.CompletionPath,
		req.Model,
		req.Temperature,
		req.MaxTokens,
		maxLines,
		len(req.Prompt),
		req.Prompt)
}

func (p *Provider) logResponse(result *openai.StreamResult) {
	logger.Debug("%s provider response:\n  Text length: %d chars\n  FinishReason: %s\n  StoppedEarly: %v\n  Text: %q",
		p.Name,
		len(result.Text),
		result.FinishReason,
		result.StoppedEarly,
		result.Text)
}
