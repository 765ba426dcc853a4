package models

// InboundEvent is one user action delivered by the transport, classified
// once at the transport boundary: a slash command, a known menu button,
// an inline-keyboard selection, or free text. The session state machine
// dispatches on the concrete type.
type InboundEvent interface {
	EventUserID() int64
	EventChatID() int64
}

// EventMeta carries the identity fields shared by every event
type EventMeta struct {
	UserID      int64
	ChatID      int64
	DisplayName string
}

func (m EventMeta) EventUserID() int64 { return m.UserID }
func (m EventMeta) EventChatID() int64 { return m.ChatID }

// CommandEvent is a slash command such as /start (leading slash stripped)
type CommandEvent struct {
	EventMeta
	Name string
}

// MenuButtonEvent is a tap on a reply-keyboard button; Label is the exact
// button text
type MenuButtonEvent struct {
	EventMeta
	Label string
}

// FreeTextEvent is any text message that is neither a command nor a known
// button label
type FreeTextEvent struct {
	EventMeta
	Text string
}

// SelectionEvent is an inline-keyboard callback. Token is the opaque
// callback data ("delete_<id>"); MessageID references the listing message
// so it can be edited in place, CallbackID acknowledges the callback.
type SelectionEvent struct {
	EventMeta
	Token      string
	MessageID  int64
	CallbackID string
}
