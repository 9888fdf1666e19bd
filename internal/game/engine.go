package game

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultMinPlayers = 3
	defaultMaxPlayers = 10
)

// Settings are the engine's tunables. Zero values are replaced by defaults.
type Settings struct {
	MinPlayers       int
	MaxPlayers       int
	NicknameTimeout  time.Duration
	VoteDeadline     time.Duration
	CurseDeleteDelay time.Duration
}

// DefaultSettings returns the stock game parameters.
func DefaultSettings() Settings {
	return Settings{
		MinPlayers:       defaultMinPlayers,
		MaxPlayers:       defaultMaxPlayers,
		NicknameTimeout:  60 * time.Second,
		VoteDeadline:     120 * time.Second,
		CurseDeleteDelay: 500 * time.Millisecond,
	}
}

func (s Settings) withDefaults() Settings {
	d := DefaultSettings()
	if s.MinPlayers == 0 {
		s.MinPlayers = d.MinPlayers
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = d.MaxPlayers
	}
	if s.NicknameTimeout == 0 {
		s.NicknameTimeout = d.NicknameTimeout
	}
	if s.VoteDeadline == 0 {
		s.VoteDeadline = d.VoteDeadline
	}
	if s.CurseDeleteDelay == 0 {
		s.CurseDeleteDelay = d.CurseDeleteDelay
	}
	return s
}

// eventKind tags the payload of an inbound event.
type eventKind int

const (
	evOpenLobby eventKind = iota
	evJoin
	evStartGame
	evMessage
	evCallVote
	evSubmitVote
	evCurse
	evSelfCurse
	evLiftCurse
	evFakeAlert
	evNicknameTimeout
	evVoteTimeout
)

// event is the single internal shape every transport (command, button press,
// plain message, timer) is reduced to before it reaches the state machine.
type event struct {
	kind      eventKind
	caller    int64
	target    int64
	messageID int
	text      string
	name      string // caller's display name, only meaningful on join
}

// roomHandle is one room's serialization domain: the in-memory session plus
// its timer slots, all guarded by a single mutex. Handles for different rooms
// never contend.
type roomHandle struct {
	mu      sync.Mutex
	session *Session
	gens    map[timerSlot]uint64
	timers  map[timerSlot]*time.Timer
}

// Engine owns every room session and is the only writer of session state.
type Engine struct {
	settings Settings
	store    Store
	msg      Messenger
	log      *zap.Logger

	mu    sync.RWMutex
	rooms map[int64]*roomHandle
}

// NewEngine wires the state machine to its store and chat platform.
func NewEngine(settings Settings, store Store, msg Messenger, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		settings: settings.withDefaults(),
		store:    store,
		msg:      msg,
		log:      log,
		rooms:    make(map[int64]*roomHandle),
	}
}

// OpenLobby resets the room to a fresh lobby. Only an elevated member may
// open one, and only while no session is running.
func (e *Engine) OpenLobby(ctx context.Context, roomID, callerID int64) error {
	return e.dispatch(ctx, roomID, event{kind: evOpenLobby, caller: callerID})
}

// Join adds the caller to the lobby roster.
func (e *Engine) Join(ctx context.Context, roomID, callerID int64, displayName string) error {
	return e.dispatch(ctx, roomID, event{kind: evJoin, caller: callerID, name: displayName})
}

// StartGame closes the lobby and begins nickname registration.
func (e *Engine) StartGame(ctx context.Context, roomID, callerID int64) error {
	return e.dispatch(ctx, roomID, event{kind: evStartGame, caller: callerID})
}

// RoomMessage feeds a plain group message into the session: a nickname answer
// during registration, or a suppression candidate during play.
func (e *Engine) RoomMessage(ctx context.Context, roomID, callerID int64, messageID int, text string) error {
	return e.dispatch(ctx, roomID, event{kind: evMessage, caller: callerID, messageID: messageID, text: text})
}

// CallVote moves an active game into its voting phase.
func (e *Engine) CallVote(ctx context.Context, roomID, callerID int64) error {
	return e.dispatch(ctx, roomID, event{kind: evCallVote, caller: callerID})
}

// SubmitVote records the caller's vote. The first vote per player wins.
func (e *Engine) SubmitVote(ctx context.Context, roomID, callerID, targetID int64) error {
	return e.dispatch(ctx, roomID, event{kind: evSubmitVote, caller: callerID, target: targetID})
}

// Curse silences the target. Killer only.
func (e *Engine) Curse(ctx context.Context, roomID, callerID, targetID int64) error {
	return e.dispatch(ctx, roomID, event{kind: evCurse, caller: callerID, target: targetID})
}

// SelfCurse lets the Killer silence themselves as a bluff.
func (e *Engine) SelfCurse(ctx context.Context, roomID, callerID int64) error {
	return e.dispatch(ctx, roomID, event{kind: evSelfCurse, caller: callerID})
}

// LiftCurse removes a curse from the target. Killer only, no public trace.
func (e *Engine) LiftCurse(ctx context.Context, roomID, callerID, targetID int64) error {
	return e.dispatch(ctx, roomID, event{kind: evLiftCurse, caller: callerID, target: targetID})
}

// FakeAlert emits the curse announcement without cursing anyone.
func (e *Engine) FakeAlert(ctx context.Context, roomID, callerID int64) error {
	return e.dispatch(ctx, roomID, event{kind: evFakeAlert, caller: callerID})
}

func (e *Engine) handle(roomID int64) *roomHandle {
	e.mu.RLock()
	h, ok := e.rooms[roomID]
	e.mu.RUnlock()
	if ok {
		return h
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if h, ok = e.rooms[roomID]; ok {
		return h
	}
	h = &roomHandle{
		gens:   make(map[timerSlot]uint64),
		timers: make(map[timerSlot]*time.Timer),
	}
	e.rooms[roomID] = h
	return h
}

func (e *Engine) dispatch(ctx context.Context, roomID int64, ev event) error {
	h := e.handle(roomID)
	h.mu.Lock()
	defer h.mu.Unlock()
	return e.handleLocked(ctx, roomID, h, ev)
}

// handleLocked is the state machine's sole entry point. The room mutex is held.
func (e *Engine) handleLocked(ctx context.Context, roomID int64, h *roomHandle, ev event) error {
	switch ev.kind {
	case evOpenLobby:
		return e.openLobby(ctx, roomID, h, ev.caller)
	case evJoin:
		return e.join(ctx, h, ev.caller, ev.name)
	case evStartGame:
		return e.startGame(ctx, roomID, h, ev.caller)
	case evMessage:
		return e.roomMessage(ctx, h, ev.caller, ev.messageID, ev.text)
	case evCallVote:
		return e.callVote(ctx, h, ev.caller)
	case evSubmitVote:
		return e.submitVote(ctx, h, ev.caller, ev.target)
	case evCurse:
		return e.curse(ctx, h, ev.caller, ev.target)
	case evSelfCurse:
		return e.selfCurse(ctx, h, ev.caller)
	case evLiftCurse:
		return e.liftCurse(ctx, h, ev.caller, ev.target)
	case evFakeAlert:
		return e.fakeAlert(ctx, h, ev.caller)
	case evNicknameTimeout:
		return e.nicknameTimeout(ctx, h, ev.target)
	case evVoteTimeout:
		return e.voteTimeout(ctx, h)
	default:
		return fmt.Errorf("unknown event kind %d", ev.kind)
	}
}

func (e *Engine) openLobby(ctx context.Context, roomID int64, h *roomHandle, callerID int64) error {
	elevated, err := e.msg.IsElevated(ctx, roomID, callerID)
	if err != nil {
		e.log.Warn("member status check failed", zap.Int64("room", roomID), zap.Error(err))
		return ErrPermissionDenied
	}
	if !elevated {
		return ErrPermissionDenied
	}
	if h.session != nil && h.session.State.Running() {
		return ErrGameRunning
	}

	e.disarmAll(h)
	h.session = NewSession(roomID, callerID)
	if err := e.persist(ctx, h.session); err != nil {
		return err
	}
	e.sendRoom(ctx, roomID,
		"A new round of Killer/Villager is open! Press Join to enter.",
		e.lobbyKeyboard())
	return nil
}

func (e *Engine) join(ctx context.Context, h *roomHandle, callerID int64, displayName string) error {
	s := h.session
	if s == nil {
		return ErrNotFound
	}
	if s.State != StateLobby {
		return ErrInvalidState
	}
	if s.Player(callerID) != nil {
		return ErrAlreadyJoined
	}
	if len(s.Players) >= e.settings.MaxPlayers {
		return ErrLobbyFull
	}

	s.Players = append(s.Players, &Player{
		UserID:      callerID,
		DisplayName: displayName,
		Role:        RoleVillager,
		Active:      true,
	})
	if err := e.persist(ctx, s); err != nil {
		return err
	}
	e.sendRoom(ctx, s.RoomID, e.rosterText(s), e.lobbyKeyboard())
	return nil
}

func (e *Engine) startGame(ctx context.Context, roomID int64, h *roomHandle, callerID int64) error {
	s := h.session
	if s == nil {
		return ErrNotFound
	}
	if s.State != StateLobby {
		return ErrInvalidState
	}
	elevated, err := e.msg.IsElevated(ctx, roomID, callerID)
	if err != nil {
		e.log.Warn("member status check failed", zap.Int64("room", roomID), zap.Error(err))
		return ErrPermissionDenied
	}
	if !elevated {
		return ErrPermissionDenied
	}
	if len(s.Players) < e.settings.MinPlayers {
		return ErrNotEnoughPlayers
	}

	s.State = StateRegistration
	s.RegistrationCursor = 0
	return e.advanceRegistration(ctx, h)
}

// persist writes the session through the store. This must complete before any
// chat message about the mutation goes out; a crash in between is recovered
// from the store alone.
func (e *Engine) persist(ctx context.Context, s *Session) error {
	if err := e.store.Save(ctx, s); err != nil {
		e.log.Error("session write failed",
			zap.Int64("room", s.RoomID),
			zap.String("state", string(s.State)),
			zap.Error(err))
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// sendRoom and sendPrivate are best-effort: a delivery failure never fails
// the transition that requested it.
func (e *Engine) sendRoom(ctx context.Context, roomID int64, text string, kb Keyboard) {
	if err := e.msg.SendRoom(ctx, roomID, text, kb); err != nil {
		e.log.Warn("room send failed", zap.Int64("room", roomID), zap.Error(err))
	}
}

func (e *Engine) sendPrivate(ctx context.Context, userID int64, text string, kb Keyboard) {
	if err := e.msg.SendPrivate(ctx, userID, text, kb); err != nil {
		e.log.Warn("private send failed", zap.Int64("user", userID), zap.Error(err))
	}
}

func (e *Engine) lobbyKeyboard() Keyboard {
	return Keyboard{{
		{Text: "Join", Data: CallbackJoin},
		{Text: "Start game", Data: CallbackStart},
	}}
}

func (e *Engine) rosterText(s *Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Players (%d/%d):\n", len(s.Players), e.settings.MaxPlayers)
	for i, p := range s.Players {
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.DisplayName)
	}
	if len(s.Players) < e.settings.MinPlayers {
		fmt.Fprintf(&b, "Need at least %d players to start.", e.settings.MinPlayers)
	}
	return b.String()
}
