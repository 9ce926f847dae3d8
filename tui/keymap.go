package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"

	"ghosttab/engine"
)

// KeyMap holds the demo editor bindings.
type KeyMap struct {
	Accept, AcceptWord, Trigger, Cancel key.Binding

	Left, Right, Up, Down key.Binding
	Home, End             key.Binding
	Backspace, Delete     key.Binding
	Enter, Tab            key.Binding
	Quit                  key.Binding
}

// NewKeyMap builds the bindings, taking the suggestion keys from keys
// (Neovim notation, e.g. "<C-Right>").
func NewKeyMap(keys engine.Keys) KeyMap {
	return KeyMap{
		Accept:     suggestionBinding(keys.Accept, "accept"),
		AcceptWord: suggestionBinding(keys.AcceptWord, "accept word"),
		Trigger:    suggestionBinding(keys.Trigger, "suggest"),
		Cancel:     suggestionBinding(keys.Cancel, "dismiss"),

		Left:  key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "left")),
		Right: key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "right")),
		Up:    key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "up")),
		Down:  key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "down")),
		Home:  key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "line start")),
		End:   key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "line end")),

		Backspace: key.NewBinding(key.WithKeys("backspace", "ctrl+h"), key.WithHelp("backspace", "delete left")),
		Delete:    key.NewBinding(key.WithKeys("delete"), key.WithHelp("del", "delete right")),
		Enter:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "newline")),
		Tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "indent")),
		Quit:      key.NewBinding(key.WithKeys("ctrl+c", "ctrl+q"), key.WithHelp("ctrl+q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Accept, k.AcceptWord, k.Trigger, k.Cancel, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		k.ShortHelp(),
		{k.Left, k.Right, k.Up, k.Down, k.Home, k.End},
		{k.Backspace, k.Delete, k.Enter, k.Tab},
	}
}

func suggestionBinding(vimKey, desc string) key.Binding {
	name := TeaKey(vimKey)
	if name == "" {
		return key.NewBinding(key.WithDisabled())
	}
	return key.NewBinding(key.WithKeys(name), key.WithHelp(name, desc))
}

var vimKeyNames = map[string]string{
	"tab":      "tab",
	"cr":       "enter",
	"enter":    "enter",
	"return":   "enter",
	"esc":      "esc",
	"bs":       "backspace",
	"del":      "delete",
	"space":    " ",
	"left":     "left",
	"right":    "right",
	"up":       "up",
	"down":     "down",
	"home":     "home",
	"end":      "end",
	"pageup":   "pgup",
	"pagedown": "pgdown",
}

// TeaKey converts a Neovim key ("<C-Right>", "<Tab>", "x") to the name
// bubbletea reports for it ("ctrl+right", "tab", "x"). "" for an empty or
// unknown key.
func TeaKey(vimKey string) string {
	vimKey = strings.TrimSpace(vimKey)
	if vimKey == "" {
		return ""
	}
	if !strings.HasPrefix(vimKey, "<") || !strings.HasSuffix(vimKey, ">") {
		return vimKey
	}

	parts := strings.Split(vimKey[1:len(vimKey)-1], "-")
	base := parts[len(parts)-1]
	var ctrl, alt, shift bool
	for _, mod := range parts[:len(parts)-1] {
		switch strings.ToLower(mod) {
		case "c":
			ctrl = true
		case "m", "a":
			alt = true
		case "s":
			shift = true
		default:
			return ""
		}
	}

	name, ok := vimKeyNames[strings.ToLower(base)]
	if !ok {
		if len(base) != 1 {
			return ""
		}
		name = strings.ToLower(base)
	}

	// terminals send NUL for ctrl+space
	if ctrl && name == " " {
		name = "@"
	}
	if shift && name == "tab" {
		name, shift = "shift+tab", false
	}

	// bubbletea puts alt first: "alt+ctrl+right"
	var b strings.Builder
	if alt {
		b.WriteString("alt+")
	}
	if ctrl {
		b.WriteString("ctrl+")
	}
	if shift {
		b.WriteString("shift+")
	}
	b.WriteString(name)
	return b.String()
}
