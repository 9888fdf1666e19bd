package game

import "context"

// Button is one inline button. Data is the callback payload routed back into
// the engine by the chat adapter.
type Button struct {
	Text string
	Data string
}

// Keyboard is rows of buttons attached to a message.
type Keyboard [][]Button

// Callback payloads understood by the engine. The chat adapter renders them
// into inline buttons and routes presses back by prefix. Room-scoped buttons
// carry no room id (the adapter reads it off the message's chat); the
// Killer's panel is delivered privately, so its payloads embed the room.
const (
	CallbackJoin            = "join"
	CallbackStart           = "start"
	CallbackVotePrefix      = "vote:"      // vote:<target>
	CallbackCursePrefix     = "curse:"     // curse:<room>:<target>
	CallbackSelfCursePrefix = "selfcurse:" // selfcurse:<room>
	CallbackLiftPrefix      = "lift:"      // lift:<room>:<target>
	CallbackFakeAlertPrefix = "fakealert:" // fakealert:<room>
)

// Messenger is the chat platform as seen from the engine. Delivery is
// best-effort: the engine logs failures and never blocks a transition on them.
type Messenger interface {
	SendRoom(ctx context.Context, roomID int64, text string, kb Keyboard) error
	SendPrivate(ctx context.Context, userID int64, text string, kb Keyboard) error
	DeleteMessage(ctx context.Context, roomID int64, messageID int) error

	// IsElevated reports whether the user has admin rights in the room.
	// Consulted only when opening a lobby or starting a game.
	IsElevated(ctx context.Context, roomID, userID int64) (bool, error)
}

// Store is the durable side of a session. Save must complete before any
// externally visible effect of the mutation it records.
type Store interface {
	Save(ctx context.Context, s *Session) error
	Get(ctx context.Context, roomID int64) (*Session, error)
	// Active returns every stored session whose state is neither Idle nor Ended.
	Active(ctx context.Context) ([]*Session, error)
	Delete(ctx context.Context, roomID int64) error
}
