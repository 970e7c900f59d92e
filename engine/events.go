package engine

import (
	"fmt"

	"chatcore/model"
)

// EventKind identifies what happened during a turn.
type EventKind int

const (
	// EventDelta carries one streamed content fragment.
	EventDelta EventKind = iota
	// EventToolStarted is emitted before a tool call is executed.
	EventToolStarted
	// EventToolFinished carries the content of the resolved tool call.
	EventToolFinished
	// EventMessagePersisted is emitted after a message is stored.
	EventMessagePersisted
	// EventTitleUpdated is emitted after the chat title changed.
	EventTitleUpdated
	// EventTurnFinished is always the last event of a turn. Err is set if
	// the turn failed.
	EventTurnFinished
)

func (k EventKind) String() string {
	switch k {
	case EventDelta:
		return "delta"
	case EventToolStarted:
		return "tool_started"
	case EventToolFinished:
		return "tool_finished"
	case EventMessagePersisted:
		return "message_persisted"
	case EventTitleUpdated:
		return "title_updated"
	case EventTurnFinished:
		return "turn_finished"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is delivered to the Observer synchronously, in turn order.
type Event struct {
	Kind     EventKind
	ChatID   string
	Depth    int
	Content  string
	ToolCall model.ToolCall
	Message  model.Message
	Title    string
	Err      error
}

// Observer receives turn events. It runs on the turn's goroutine and
// should return quickly.
type Observer func(Event)
