// Package fim completes at the cursor with a fill-in-the-middle prompt and
// may suggest several lines.
package fim

import (
	"strings"

	"ghosttab/client/openai"
	"ghosttab/provider"
	"ghosttab/types"
)

// NewProvider creates a new fill-in-the-middle completion provider
func NewProvider(config *types.ProviderConfig, client provider.Client) *provider.Provider {
	return &provider.Provider{
		Name:      "fim",
		Config:    config,
		Client:    client,
		Streaming: true,
		Preprocessors: []provider.Preprocessor{
			provider.SkipIfTextAfterCursor(),
			provider.TrimContent(),
		},
		PromptBuilder: buildPrompt,
		Postprocessors: []provider.Postprocessor{
			provider.RejectEmpty(),
			provider.DropLastLineIfTruncated(),
			provider.TrimTrailingSpace(),
			provider.RejectEmpty(),
			provider.RejectEchoedSuffix(),
		},
	}
}

func buildPrompt(p *provider.Provider, ctx *provider.Context) *openai.CompletionRequest {
	tokens := p.Config.FIMTokens
	w := ctx.Window

	var prefixBuilder strings.Builder
	var suffixBuilder strings.Builder

	for i := range w.CursorRow {
		prefixBuilder.WriteString(w.Lines[i])
		prefixBuilder.WriteString("\n")
	}

	if w.CursorRow < len(w.Lines) {
		currentLine := w.Lines[w.CursorRow]
		cursorCol := min(ctx.Request.CursorCol, len(currentLine))
		prefixBuilder.WriteString(currentLine[:cursorCol])
		suffixBuilder.WriteString(currentLine[cursorCol:])
	}

	for i := w.CursorRow + 1; i < len(w.Lines); i++ {
		suffixBuilder.WriteString("\n")
		suffixBuilder.WriteString(w.Lines[i])
	}

	return &openai.CompletionRequest{
		Model:       p.Config.ProviderModel,
		Prompt:      tokens.Prefix + prefixBuilder.String() + tokens.Suffix + suffixBuilder.String() + tokens.Middle,
		Temperature: p.Config.ProviderTemperature,
		MaxTokens:   p.Config.ProviderMaxTokens,
		TopK:        p.Config.ProviderTopK,
		N:           1,
		Echo:        false,
	}
}
