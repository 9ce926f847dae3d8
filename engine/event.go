package engine

import (
	"ghosttab/suggest"
	"ghosttab/text"
)

type EventType string

const (
	// Host notifications
	EventTextChanged EventType = "text_changed"
	EventCursorMoved EventType = "cursor_moved"
	EventAccept      EventType = "accept"
	EventAcceptWord  EventType = "accept_word"
	EventTrigger     EventType = "trigger"
	EventCancel      EventType = "cancel"

	// Internal
	EventDebounceFired EventType = "debounce_fired"
	EventFetchReady    EventType = "fetch_ready"
	EventFetchError    EventType = "fetch_error"
)

// hostEvents are the names a host may send over RPC.
var hostEvents = map[string]EventType{
	string(EventTextChanged): EventTextChanged,
	string(EventCursorMoved): EventCursorMoved,
	string(EventAccept):      EventAccept,
	string(EventAcceptWord):  EventAcceptWord,
	string(EventTrigger):     EventTrigger,
	string(EventCancel):      EventCancel,
}

// EventTypeFromString maps a host event name to its type, or "" when the
// name is unknown or internal.
func EventTypeFromString(s string) EventType {
	return hostEvents[s]
}

type Event struct {
	Type EventType
	Data any
}

// fetchResult is the payload of EventFetchReady.
type fetchResult struct {
	text     string
	snapshot *text.Document
}

// eventHandlers dispatches events on the loop. The engine mutex is held.
//
//	text_changed / cursor_moved ──► host.Sync ──► reduce ──► (auto, doc changed) arm debounce
//	debounce_fired (current gen) ──► snapshot host state ──► fetch goroutine
//	fetch_ready ──► reduce with FetchResult{text, snapshot}
//	fetch_error ──► log, OnFetchError
//	accept / accept_word ──► host.Sync ──► host.Apply(commit edit) ──► reduce with its effects
//	trigger ──► fetch now
//	cancel ──► reduce with Clear
var eventHandlers = map[EventType]func(*Engine, Event){
	EventTextChanged:   (*Engine).doSync,
	EventCursorMoved:   (*Engine).doSync,
	EventAccept:        func(e *Engine, ev Event) { e.doSync(ev); e.commit(suggest.BuildCommitEdit) },
	EventAcceptWord:    func(e *Engine, ev Event) { e.doSync(ev); e.commit(suggest.BuildPartialCommitEdit) },
	EventTrigger:       func(e *Engine, _ Event) { e.trigger() },
	EventCancel:        func(e *Engine, _ Event) { e.cancel() },
	EventDebounceFired: (*Engine).doDebounceFired,
	EventFetchReady:    (*Engine).doFetchReady,
	EventFetchError:    (*Engine).doFetchError,
}
