package provider

import (
	"errors"
	"strings"

	"ghosttab/client/openai"
	"ghosttab/logger"
	"ghosttab/utils"
)

// Preprocessor processes the context before prompt building.
// Return ErrSkipFetch to skip without error, or another error to fail.
type Preprocessor func(p *Provider, ctx *Context) error

// PromptBuilder builds the completion request from the context
type PromptBuilder func(p *Provider, ctx *Context) *openai.CompletionRequest

// Postprocessor inspects or rewrites ctx.Result. Returning false rejects
// the completion.
type Postprocessor func(p *Provider, ctx *Context) bool

// ErrSkipFetch is a sentinel error that preprocessors return to skip
// the request without treating it as an error.
var ErrSkipFetch = errors.New("skip fetch")

// --- Preprocessors ---

// TrimContent returns a preprocessor that keeps the lines around the cursor
// that fit in the context budget.
func TrimContent() Preprocessor {
	return func(p *Provider, ctx *Context) error {
		ctx.Window = utils.TrimContentAroundCursor(
			ctx.Request.Lines,
			ctx.Request.CursorRow-1,
			p.Config.MaxContextTokens,
		)
		ctx.MaxLines = p.Config.MaxLines
		return nil
	}
}

// SkipIfTextAfterCursor returns a preprocessor that skips when the cursor is
// not at the end of its line. Suggestions extend the line, so they cannot be
// shown in the middle of one.
func SkipIfTextAfterCursor() Preprocessor {
	return func(p *Provider, ctx *Context) error {
		if ctx.Request.AfterCursor() != "" {
			logger.Debug("%s: skipping, text after cursor", p.Name)
			return ErrSkipFetch
		}
		return nil
	}
}

// SkipIfBlankLine returns a preprocessor that skips when the current line
// holds only whitespace.
func SkipIfBlankLine() Preprocessor {
	return func(p *Provider, ctx *Context) error {
		if strings.TrimSpace(ctx.Request.CurrentLine()) == "" {
			logger.Debug("%s: skipping, blank line", p.Name)
			return ErrSkipFetch
		}
		return nil
	}
}

// --- Postprocessors ---

// RejectEmpty returns a postprocessor that rejects empty completions
func RejectEmpty() Postprocessor {
	return func(p *Provider, ctx *Context) bool {
		if strings.TrimSpace(ctx.Result.Text) == "" {
			logger.Debug("%s: rejected, empty or whitespace-only", p.Name)
			return false
		}
		return true
	}
}

// RejectTruncated returns a postprocessor that rejects truncated completions
func RejectTruncated() Postprocessor {
	return func(p *Provider, ctx *Context) bool {
		if ctx.Result.FinishReason == "length" {
			logger.Info("%s: rejected, truncated (finish_reason=length)", p.Name)
			return false
		}
		return true
	}
}

// DropLastLineIfTruncated returns a postprocessor that drops the incomplete
// last line of a multi-line completion cut by max_tokens or the line limit.
func DropLastLineIfTruncated() Postprocessor {
	return func(p *Provider, ctx *Context) bool {
		if ctx.Result.FinishReason != "length" && !ctx.Result.StoppedEarly {
			return true
		}

		lines := strings.Split(ctx.Result.Text, "\n")
		originalLineCount := len(lines)

		if len(lines) <= 1 {
			logger.Info("%s: rejected, truncated single line", p.Name)
			return false
		}

		lines = lines[:len(lines)-1]
		ctx.Result.Text = strings.Join(lines, "\n")

		if strings.TrimSpace(ctx.Result.Text) == "" {
			logger.Info("%s: rejected, empty after dropping truncated line", p.Name)
			return false
		}

		logger.Info("%s: truncated, dropped last line (%d -> %d lines)",
			p.Name, originalLineCount, len(lines))
		return true
	}
}

// FirstLineOnly returns a postprocessor that keeps the completion up to its
// first line break.
func FirstLineOnly() Postprocessor {
	return func(p *Provider, ctx *Context) bool {
		if i := strings.IndexByte(ctx.Result.Text, '\n'); i >= 0 {
			ctx.Result.Text = ctx.Result.Text[:i]
		}
		return true
	}
}

// TrimTrailingSpace returns a postprocessor that removes trailing blank
// lines and whitespace.
func TrimTrailingSpace() Postprocessor {
	return func(p *Provider, ctx *Context) bool {
		ctx.Result.Text = strings.TrimRight(ctx.Result.Text, " \t\r\n")
		return true
	}
}

// RejectEchoedSuffix returns a postprocessor that rejects completions that
// only repeat the lines following the cursor.
func RejectEchoedSuffix() Postprocessor {
	return func(p *Provider, ctx *Context) bool {
		w := ctx.Window
		if w.CursorRow+1 >= len(w.Lines) {
			return true
		}
		following := w.Lines[w.CursorRow+1:]
		completion := strings.Split(strings.TrimLeft(ctx.Result.Text, "\r\n"), "\n")
		if len(completion) > len(following) {
			return true
		}
		if IsNoOpReplacement(completion, following[:len(completion)]) {
			logger.Debug("%s: rejected, completion repeats the following lines", p.Name)
			return false
		}
		return true
	}
}

// IsNoOpReplacement checks if replacing oldLines with newLines would result
// in no change, ignoring trailing whitespace.
func IsNoOpReplacement(newLines, oldLines []string) bool {
	newText := strings.TrimRight(strings.Join(newLines, "\n"), " \t\n\r")
	oldText := strings.TrimRight(strings.Join(oldLines, "\n"), " \t\n\r")
	return newText == oldText
}
