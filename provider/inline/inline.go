// Package inline completes the current line from the text before the cursor.
package inline

import (
	"strings"

	"ghosttab/client/openai"
	"ghosttab/provider"
	"ghosttab/types"
)

// NewProvider creates a new inline completion provider
func NewProvider(config *types.ProviderConfig, client provider.Client) *provider.Provider {
	return &provider.Provider{
		Name:      "inline",
		Config:    config,
		Client:    client,
		Streaming: false,
		Preprocessors: []provider.Preprocessor{
			provider.SkipIfTextAfterCursor(),
			provider.SkipIfBlankLine(),
			provider.TrimContent(),
		},
		PromptBuilder: buildPrompt,
		Postprocessors: []provider.Postprocessor{
			provider.RejectTruncated(),
			provider.FirstLineOnly(),
			provider.TrimTrailingSpace(),
			provider.RejectEmpty(),
		},
	}
}

func buildPrompt(p *provider.Provider, ctx *provider.Context) *openai.CompletionRequest {
	w := ctx.Window

	var promptBuilder strings.Builder
	for i := range w.CursorRow {
		promptBuilder.WriteString(w.Lines[i])
		promptBuilder.WriteString("\n")
	}
	if w.CursorRow < len(w.Lines) {
		currentLine := w.Lines[w.CursorRow]
		promptBuilder.WriteString(currentLine[:min(ctx.Request.CursorCol, len(currentLine))])
	}

	return &openai.CompletionRequest{
		Model:       p.Config.ProviderModel,
		Prompt:      promptBuilder.String(),
		Temperature: p.Config.ProviderTemperature,
		MaxTokens:   p.Config.ProviderMaxTokens,
		TopK:        p.Config.ProviderTopK,
		Stop:        []string{"\n"},
		N:           1,
		Echo:        false,
	}
}
