package game

import (
	"time"
)

// State represents the current phase of a room's session
type State string

const (
	StateIdle         State = "idle"
	StateLobby        State = "lobby"
	StateRegistration State = "registration"
	StateActive       State = "active"
	StateVoting       State = "voting"
	StateEnded        State = "ended"
)

// Running reports whether a session in this state occupies the room.
// Only Idle and Ended rooms accept a fresh lobby.
func (s State) Running() bool {
	return s != StateIdle && s != StateEnded
}

// Role is a player's hidden role
type Role string

const (
	RoleVillager Role = "villager"
	RoleKiller   Role = "killer"
)

// Player belongs to exactly one session. Active flips to false on a
// registration timeout, a lost vote, or removal, and never flips back.
type Player struct {
	UserID      int64  `json:"userId"`
	DisplayName string `json:"displayName"`
	Nickname    string `json:"nickname,omitempty"`
	Role        Role   `json:"role"`
	Active      bool   `json:"active"`
}

// Name returns the chosen nickname, falling back to the raw handle.
func (p *Player) Name() string {
	if p.Nickname != "" {
		return p.Nickname
	}
	return p.DisplayName
}

// Session is the root aggregate for one room. Join order of Players is
// significant: the registration sequencer walks it front to back.
type Session struct {
	RoomID  int64     `json:"roomId"`
	State   State     `json:"state"`
	OwnerID int64     `json:"ownerId"`
	Players []*Player `json:"players"`

	// Registration phase
	RegistrationCursor int   `json:"registrationCursor"`
	AwaitingNickname   int64 `json:"awaitingNickname,omitempty"` // user id, 0 = nobody

	// Active phase
	KillerID int64          `json:"killerId,omitempty"`
	Cursed   map[int64]bool `json:"cursed"`

	// Voting phase
	Votes        map[int64]int64 `json:"votes"`
	VoteDeadline time.Time       `json:"voteDeadline,omitzero"`
}

// NewSession returns a fresh lobby owned by the given user.
func NewSession(roomID, ownerID int64) *Session {
	return &Session{
		RoomID:  roomID,
		State:   StateLobby,
		OwnerID: ownerID,
		Players: make([]*Player, 0, defaultMaxPlayers),
		Cursed:  make(map[int64]bool),
		Votes:   make(map[int64]int64),
	}
}

// Player returns the player with the given user id, or nil.
func (s *Session) Player(userID int64) *Player {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p
		}
	}
	return nil
}

// ActivePlayers returns the players still in the game, in join order.
func (s *Session) ActivePlayers() []*Player {
	out := make([]*Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

// ActiveCount returns the number of players still in the game.
func (s *Session) ActiveCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Active {
			n++
		}
	}
	return n
}

// ActiveVillagerCount returns how many active players are not the Killer.
func (s *Session) ActiveVillagerCount() int {
	n := 0
	for _, p := range s.Players {
		if p.Active && p.Role != RoleKiller {
			n++
		}
	}
	return n
}

// Killer returns the player holding the Killer role, or nil before assignment.
func (s *Session) Killer() *Player {
	if s.KillerID == 0 {
		return nil
	}
	return s.Player(s.KillerID)
}

// IsCursed reports whether the player is currently silenced.
func (s *Session) IsCursed(userID int64) bool {
	return s.Cursed[userID]
}
