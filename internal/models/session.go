package models

// SessionState is the per-user position in the menu flow. It is a sealed
// tagged union: every state is its own type and only AwaitingFreeText
// carries a payload, so no state can expose a field that is meaningless
// for it.
type SessionState interface {
	isSessionState()
}

// Idle is the top-level state; a user with no stored session is Idle.
type Idle struct{}

// ChoosingInputCategory means the category keyboard for data entry is shown.
type ChoosingInputCategory struct{}

// ChoosingViewCategory means the category keyboard for browsing is shown.
type ChoosingViewCategory struct{}

// ChoosingDeleteCategory means the category keyboard for deletion is shown.
type ChoosingDeleteCategory struct{}

// AwaitingFreeText means the next text message is report content for the
// bound category.
type AwaitingFreeText struct {
	Category Category
}

func (Idle) isSessionState()                   {}
func (ChoosingInputCategory) isSessionState()  {}
func (ChoosingViewCategory) isSessionState()   {}
func (ChoosingDeleteCategory) isSessionState() {}
func (AwaitingFreeText) isSessionState()       {}
