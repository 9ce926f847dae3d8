// Package buffer implements engine.Host over a Neovim connection.
package buffer

import (
	"fmt"
	"sync"

	"ghosttab/logger"
	"ghosttab/suggest"
	"ghosttab/text"

	"github.com/neovim/go-client/nvim"
)

const (
	namespaceName    = "ghosttab"
	defaultHighlight = "Comment"
)

type Config struct {
	NsID      int    // 0 creates the "ghosttab" namespace on InstallKeymaps
	Highlight string // highlight group of the ghost text
}

// NvimHost tracks the current buffer of one Neovim client as a text.State
// and draws ghost text as an extmark.
type NvimHost struct {
	client *nvim.Nvim
	config Config

	mu     sync.Mutex
	state  text.State
	id     nvim.Buffer
	path   string
	synced bool
}

func New(config Config) *NvimHost {
	if config.Highlight == "" {
		config.Highlight = defaultHighlight
	}
	return &NvimHost{
		config: config,
		state:  text.NewState("", 0),
	}
}

// SetClient stores the client. It makes no RPC call, so it is safe before
// the connection is served.
func (h *NvimHost) SetClient(n *nvim.Nvim) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.client = n
}

// ensureNamespace resolves the extmark namespace. Called with h.mu held.
func (h *NvimHost) ensureNamespace() error {
	if h.config.NsID != 0 {
		return nil
	}
	ns, err := h.client.CreateNamespace(namespaceName)
	if err != nil {
		return fmt.Errorf("failed to create namespace: %w", err)
	}
	h.config.NsID = ns
	return nil
}

// Path is the name of the buffer seen by the last Sync.
func (h *NvimHost) Path() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.path
}

func (h *NvimHost) State() text.State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Sync reads the current buffer and cursor in one round-trip and reports
// the difference to the previous observation as a transaction.
func (h *NvimHost) Sync() (text.Transaction, error) {
	defer logger.Trace("buffer.Sync")()

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return text.Transaction{}, fmt.Errorf("nvim client not set")
	}

	batch := h.client.NewBatch()

	var currentBuf nvim.Buffer
	var path string
	var lines [][]byte
	var cursor [2]int

	batch.CurrentBuffer(&currentBuf)
	batch.BufferName(nvim.Buffer(0), &path)
	batch.BufferLines(nvim.Buffer(0), 0, -1, false, &lines)
	batch.WindowCursor(nvim.Window(0), &cursor)

	if err := batch.Execute(); err != nil {
		return text.Transaction{}, fmt.Errorf("failed to execute sync batch: %w", err)
	}

	newText := text.JoinLines(bytesToLines(lines))
	prev := h.state

	var tr text.Transaction
	if !h.synced || h.id != currentBuf {
		// different buffer: no meaningful diff against the previous one
		if h.synced {
			logger.Debug("buffer: switched from %q to %q", h.path, path)
		}
		doc := text.NewDocument(newText)
		tr = text.Transaction{
			StartDoc: prev.Doc,
			Doc:      doc,
			Head:     cursorToOffset(doc, cursor),
		}
		h.id = currentBuf
		h.synced = true
	} else {
		head := cursorToOffset(text.NewDocument(newText), cursor)
		tr = text.TransactionBetween(prev, newText, head)
	}

	h.path = path
	h.state = tr.State()
	return tr, nil
}

// Apply writes edit to the buffer as one batch: replaced lines, then the
// cursor.
func (h *NvimHost) Apply(edit *suggest.Edit) (text.Transaction, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return text.Transaction{}, fmt.Errorf("nvim client not set")
	}

	head := edit.Head
	tr, err := h.state.Apply(edit.Changes, &head)
	if err != nil {
		return text.Transaction{}, fmt.Errorf("failed to apply edit: %w", err)
	}

	batch := h.client.NewBatch()
	batch.ClearBufferNamespace(h.id, h.config.NsID, 0, -1)
	if start, end, lines, ok := lineSpan(tr); ok {
		batch.SetBufferLines(h.id, start-1, end, true, linesToBytes(lines))
	}
	batch.SetWindowCursor(nvim.Window(0), offsetToCursor(tr.Doc, tr.Head))

	if err := batch.Execute(); err != nil {
		return text.Transaction{}, fmt.Errorf("failed to write edit: %w", err)
	}

	h.state = tr.State()
	return tr, nil
}

const showGhostLua = `
local buf, ns, row, col, first, rest, hl = ...
vim.api.nvim_buf_clear_namespace(buf, ns, 0, -1)
local opts = { virt_text = { { first, hl } }, virt_text_pos = "inline", hl_mode = "combine" }
if #rest > 0 then
	local virt_lines = {}
	for _, l in ipairs(rest) do
		table.insert(virt_lines, { { l, hl } })
	end
	opts.virt_lines = virt_lines
end
local ok, err = pcall(vim.api.nvim_buf_set_extmark, buf, ns, row, col, opts)
if not ok then
	return err
end
return ""
`

// ShowGhost replaces the ghost text with dec: the first line inline at the
// cursor, the rest as virtual lines below.
func (h *NvimHost) ShowGhost(dec *suggest.Decoration) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return fmt.Errorf("nvim client not set")
	}

	var luaErr string
	batch := h.client.NewBatch()
	batch.ExecLua(showGhostLua, &luaErr, h.ghostArgs(dec)...)
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("failed to show ghost text: %w", err)
	}
	if luaErr != "" {
		return fmt.Errorf("failed to set extmark: %s", luaErr)
	}
	return nil
}

// ghostArgs are the arguments of showGhostLua. The extmark goes on the
// synced buffer, the one Apply and ClearGhost write to.
func (h *NvimHost) ghostArgs(dec *suggest.Decoration) []any {
	first, rest := splitGhost(dec)
	return []any{h.id, h.config.NsID, dec.Line - 1, dec.Column, first, rest, h.config.Highlight}
}

func (h *NvimHost) ClearGhost() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return fmt.Errorf("nvim client not set")
	}
	batch := h.client.NewBatch()
	batch.ClearBufferNamespace(h.id, h.config.NsID, 0, -1)
	return batch.Execute()
}

// Helpers

// lineSpan returns the 1-indexed line range of the start document touched
// by tr and the lines of the new document replacing it. ok is false for a
// transaction without changes.
func lineSpan(tr text.Transaction) (start, end int, lines []string, ok bool) {
	if len(tr.Changes) == 0 || !tr.DocChanged() {
		return 0, 0, nil, false
	}
	first := tr.Changes[0]
	last := tr.Changes[len(tr.Changes)-1]

	start = tr.StartDoc.LineAt(first.From).Number
	end = tr.StartDoc.LineAt(last.To).Number
	newEnd := end + tr.Doc.Lines() - tr.StartDoc.Lines()

	all := tr.Doc.SplitLines()
	return start, end, all[start-1 : newEnd], true
}

// cursorToOffset converts a Neovim cursor (1-indexed row, byte column).
func cursorToOffset(doc *text.Document, cursor [2]int) int {
	return doc.Offset(cursor[0], cursor[1])
}

func offsetToCursor(doc *text.Document, offset int) [2]int {
	row, col := doc.Position(offset)
	return [2]int{row, col}
}

// splitGhost returns the inline part and the virtual lines of dec.
func splitGhost(dec *suggest.Decoration) (string, []string) {
	if len(dec.Lines) == 0 {
		return dec.Text, []string{}
	}
	rest := make([]string, len(dec.Lines)-1)
	copy(rest, dec.Lines[1:])
	return dec.Lines[0], rest
}

func bytesToLines(lines [][]byte) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = string(line)
	}
	return out
}

func linesToBytes(lines []string) [][]byte {
	out := make([][]byte, len(lines))
	for i, line := range lines {
		out[i] = []byte(line)
	}
	return out
}
