package buffer

import (
	"errors"
	"fmt"

	"ghosttab/engine"
	"ghosttab/logger"

	"github.com/neovim/go-client/nvim"
)

const (
	eventMethod     = "ghosttab_event"
	acceptMethod    = "ghosttab_accept"
	canAcceptMethod = "ghosttab_can_accept"
)

// installLua sets up the insert-mode maps and autocommands that report to
// the daemon. Accept keys ask the daemon to commit and wait for the answer;
// when nothing was committed the raw key is fed back so <Tab> still indents.
const installLua = `
local chan, keys = ...
local group = vim.api.nvim_create_augroup("ghosttab", { clear = true })

local function notify(name)
	vim.rpcnotify(chan, "ghosttab_event", name)
end

local function map_commit(lhs, event)
	if lhs == nil or lhs == "" then
		return
	end
	local raw = vim.api.nvim_replace_termcodes(lhs, true, false, true)
	vim.keymap.set("i", lhs, function()
		local ok, done = pcall(vim.rpcrequest, chan, "ghosttab_accept", event)
		if not (ok and done) then
			vim.api.nvim_feedkeys(raw, "n", false)
		end
	end, { silent = true, desc = "ghosttab " .. event })
end

map_commit(keys.accept, "accept")
map_commit(keys.accept_word, "accept_word")

if keys.trigger ~= nil and keys.trigger ~= "" then
	vim.keymap.set("i", keys.trigger, function() notify("trigger") end, { silent = true, desc = "ghosttab trigger" })
end
if keys.cancel ~= nil and keys.cancel ~= "" then
	vim.keymap.set("i", keys.cancel, function() notify("cancel") end, { silent = true, desc = "ghosttab cancel" })
end

vim.api.nvim_create_autocmd("TextChangedI", { group = group, callback = function() notify("text_changed") end })
vim.api.nvim_create_autocmd("CursorMovedI", { group = group, callback = function() notify("cursor_moved") end })
vim.api.nvim_create_autocmd({ "InsertLeave", "BufLeave" }, { group = group, callback = function() notify("cancel") end })
vim.api.nvim_create_autocmd("InsertEnter", { group = group, callback = function() notify("cursor_moved") end })
`

// keymapArgs converts key bindings to the table installLua expects.
func keymapArgs(keys engine.Keys) map[string]string {
	return map[string]string{
		"accept":      keys.Accept,
		"accept_word": keys.AcceptWord,
		"trigger":     keys.Trigger,
		"cancel":      keys.Cancel,
	}
}

// InstallKeymaps resolves the namespace and registers key maps and
// autocommands on the client. The connection must be served.
func (h *NvimHost) InstallKeymaps(keys engine.Keys) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.client == nil {
		return fmt.Errorf("nvim client not set")
	}
	if err := h.ensureNamespace(); err != nil {
		return err
	}
	batch := h.client.NewBatch()
	batch.ExecLua(installLua, nil, h.client.ChannelID(), keymapArgs(keys))
	if err := batch.Execute(); err != nil {
		return fmt.Errorf("failed to install keymaps: %w", err)
	}
	return nil
}

var _ Commands = (*engine.Engine)(nil)

// Commands is the engine surface driven over RPC.
type Commands interface {
	HandleEvent(name string) error
	Accept() bool
	AcceptWord() bool
	CanAccept() bool
}

// RegisterHandlers routes the RPC surface to cmds: notification
// ghosttab_event(name), requests ghosttab_accept(name) and
// ghosttab_can_accept().
func (h *NvimHost) RegisterHandlers(cmds Commands) error {
	h.mu.Lock()
	client := h.client
	h.mu.Unlock()

	if client == nil {
		return fmt.Errorf("nvim client not set")
	}
	if err := client.RegisterHandler(eventMethod, func(_ *nvim.Nvim, name string) {
		if err := cmds.HandleEvent(name); err != nil && !errors.Is(err, engine.ErrStopped) {
			logger.Warn("event %s: %v", name, err)
		}
	}); err != nil {
		return fmt.Errorf("failed to register %s: %w", eventMethod, err)
	}
	if err := client.RegisterHandler(acceptMethod, func(_ *nvim.Nvim, name string) (bool, error) {
		return acceptCommand(cmds, name), nil
	}); err != nil {
		return fmt.Errorf("failed to register %s: %w", acceptMethod, err)
	}
	if err := client.RegisterHandler(canAcceptMethod, func(_ *nvim.Nvim) (bool, error) {
		return cmds.CanAccept(), nil
	}); err != nil {
		return fmt.Errorf("failed to register %s: %w", canAcceptMethod, err)
	}
	return nil
}

// acceptCommand commits for an accept key and reports whether the key was
// consumed. The engine syncs the buffer first, so text typed just before
// the key is taken into account.
func acceptCommand(cmds Commands, name string) bool {
	switch engine.EventTypeFromString(name) {
	case engine.EventAccept:
		return cmds.Accept()
	case engine.EventAcceptWord:
		return cmds.AcceptWord()
	default:
		logger.Debug("ignoring accept request %q", name)
		return false
	}
}
