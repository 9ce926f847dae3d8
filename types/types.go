package types

// CompletionRequest is the editor state a provider completes, in line form.
type CompletionRequest struct {
	Lines     []string
	CursorRow int // 1-indexed
	CursorCol int // 0-indexed byte column
}

// CurrentLine returns the line under the cursor, or "" when the request is
// empty.
func (r *CompletionRequest) CurrentLine() string {
	if r.CursorRow < 1 || r.CursorRow > len(r.Lines) {
		return ""
	}
	return r.Lines[r.CursorRow-1]
}

// BeforeCursor returns the part of the current line left of the cursor.
func (r *CompletionRequest) BeforeCursor() string {
	line := r.CurrentLine()
	return line[:min(max(r.CursorCol, 0), len(line))]
}

// AfterCursor returns the part of the current line right of the cursor.
func (r *CompletionRequest) AfterCursor() string {
	line := r.CurrentLine()
	return line[min(max(r.CursorCol, 0), len(line)):]
}

// ProviderType represents the type of provider
type ProviderType string

const (
	ProviderTypeInline ProviderType = "inline"
	ProviderTypeFIM    ProviderType = "fim"
)

// FIMTokenConfig holds FIM (Fill-in-the-Middle) token configuration
type FIMTokenConfig struct {
	Prefix string `json:"prefix" yaml:"prefix"` // e.g. "<|fim_prefix|>"
	Suffix string `json:"suffix" yaml:"suffix"` // e.g. "<|fim_suffix|>"
	Middle string `json:"middle" yaml:"middle"` // e.g. "<|fim_middle|>"
}

// DefaultFIMTokens are the Qwen2.5-Coder / StarCoder style tokens.
func DefaultFIMTokens() FIMTokenConfig {
	return FIMTokenConfig{
		Prefix: "<|fim_prefix|>",
		Suffix: "<|fim_suffix|>",
		Middle: "<|fim_middle|>",
	}
}

// ProviderConfig holds configuration for providers
type ProviderConfig struct {
	Type                ProviderType
	ProviderURL         string         // e.g. "http://localhost:8000"
	CompletionPath      string         // API endpoint path, "" for /v1/completions
	APIKey              string         // bearer token, optional
	Compression         string         // request body encoding: "", "br" or "zstd"
	ProviderModel       string         // Model name
	ProviderTemperature float64        // Sampling temperature
	ProviderMaxTokens   int            // Max tokens to generate
	ProviderTopK        int            // Top-k sampling (used by some servers)
	MaxContextTokens    int            // budget for the trimmed prompt window (0 = whole document)
	MaxLines            int            // lines a multi-line suggestion may span (0 = no limit)
	FIMTokens           FIMTokenConfig // FIM tokens configuration
}
