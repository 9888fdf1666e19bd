package game_test

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"killergame/internal/game"
	"killergame/internal/store"
)

const testRoom int64 = 100

// fakeMessenger records everything the engine tries to say. IsElevated
// answers from a fixed admin set.
type fakeMessenger struct {
	mu      sync.Mutex
	admins  map[int64]bool
	room    []sent
	private []sent
	deleted []int
}

type sent struct {
	chatID int64
	text   string
	kb     game.Keyboard
}

func newFakeMessenger(admins ...int64) *fakeMessenger {
	m := &fakeMessenger{admins: make(map[int64]bool)}
	for _, id := range admins {
		m.admins[id] = true
	}
	return m
}

func (m *fakeMessenger) SendRoom(_ context.Context, roomID int64, text string, kb game.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.room = append(m.room, sent{chatID: roomID, text: text, kb: kb})
	return nil
}

func (m *fakeMessenger) SendPrivate(_ context.Context, userID int64, text string, kb game.Keyboard) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.private = append(m.private, sent{chatID: userID, text: text, kb: kb})
	return nil
}

func (m *fakeMessenger) DeleteMessage(_ context.Context, _ int64, messageID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, messageID)
	return nil
}

func (m *fakeMessenger) IsElevated(_ context.Context, _, userID int64) (bool, error) {
	return m.admins[userID], nil
}

func (m *fakeMessenger) roomTexts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.room))
	for i, s := range m.room {
		out[i] = s.text
	}
	return out
}

func (m *fakeMessenger) lastRoomText() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.room) == 0 {
		return ""
	}
	return m.room[len(m.room)-1].text
}

func (m *fakeMessenger) roomSaid(substr string) bool {
	for _, text := range m.roomTexts() {
		if strings.Contains(text, substr) {
			return true
		}
	}
	return false
}

func (m *fakeMessenger) privateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.private)
}

func (m *fakeMessenger) deletedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.deleted)
}

// testHarness bundles an engine with its store and messenger.
type testHarness struct {
	engine *game.Engine
	store  *store.MemoryStore
	msgr   *fakeMessenger
}

func newHarness(settings game.Settings, admins ...int64) *testHarness {
	msgr := newFakeMessenger(admins...)
	st := store.NewMemoryStore()
	return &testHarness{
		engine: game.NewEngine(settings, st, msgr, nil),
		store:  st,
		msgr:   msgr,
	}
}

func fastSettings() game.Settings {
	return game.Settings{
		MinPlayers:       3,
		MaxPlayers:       10,
		NicknameTimeout:  40 * time.Millisecond,
		VoteDeadline:     40 * time.Millisecond,
		CurseDeleteDelay: 5 * time.Millisecond,
	}
}

func (h *testHarness) session(t *testing.T) *game.Session {
	t.Helper()
	s, err := h.store.Get(context.Background(), testRoom)
	require.NoError(t, err)
	return s
}

// openLobbyWith opens a lobby as user 1 (who must be an admin) and joins the
// given players.
func (h *testHarness) openLobbyWith(t *testing.T, players ...int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.engine.OpenLobby(ctx, testRoom, 1))
	for _, id := range players {
		require.NoError(t, h.engine.Join(ctx, testRoom, id, playerName(id)))
	}
}

// startActiveGame drives a lobby of the given players all the way through
// registration so the session lands in the active state. Players register in
// join order with nicknames Nick<id>.
func (h *testHarness) startActiveGame(t *testing.T, players ...int64) {
	t.Helper()
	ctx := context.Background()
	h.openLobbyWith(t, players...)
	require.NoError(t, h.engine.StartGame(ctx, testRoom, 1))
	for _, id := range players {
		require.NoError(t, h.engine.RoomMessage(ctx, testRoom, id, 1, nickname(id)))
	}
	require.Equal(t, game.StateActive, h.session(t).State)
}

// killerAndVillagers splits the roster of the stored session by role.
func (h *testHarness) killerAndVillagers(t *testing.T) (int64, []int64) {
	t.Helper()
	s := h.session(t)
	require.NotZero(t, s.KillerID)
	var villagers []int64
	for _, p := range s.Players {
		if p.Active && p.UserID != s.KillerID {
			villagers = append(villagers, p.UserID)
		}
	}
	return s.KillerID, villagers
}

func playerName(id int64) string {
	return fmt.Sprintf("Player%d", id)
}

func nickname(id int64) string {
	return fmt.Sprintf("Nick%d", id)
}
