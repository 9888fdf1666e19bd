package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"killergame/internal/game"
)

// roomRecord is the durable shape of one session. The cursed set and vote map
// ride along as JSON columns; players live in their own table so join order
// and per-player fields stay queryable.
type roomRecord struct {
	RoomID             int64  `gorm:"primaryKey;autoIncrement:false"`
	State              string `gorm:"index"`
	OwnerID            int64
	RegistrationCursor int
	AwaitingNickname   int64
	KillerID           int64
	Cursed             string // JSON map[int64]bool
	Votes              string // JSON map[int64]int64
	VoteDeadline       *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (roomRecord) TableName() string { return "rooms" }

type playerRecord struct {
	RoomID      int64 `gorm:"primaryKey;autoIncrement:false"`
	UserID      int64 `gorm:"primaryKey;autoIncrement:false"`
	Position    int
	DisplayName string
	Nickname    string
	Role        string
	Active      bool
}

func (playerRecord) TableName() string { return "players" }

// SQLiteStore persists sessions to a local SQLite file through gorm.
type SQLiteStore struct {
	db  *gorm.DB
	log *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at path and migrates the
// schema. Use ":memory:" for an ephemeral database.
func NewSQLiteStore(path string, log *zap.Logger) (*SQLiteStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	if err := db.AutoMigrate(&roomRecord{}, &playerRecord{}); err != nil {
		return nil, fmt.Errorf("migrating schema: %w", err)
	}
	return &SQLiteStore{db: db, log: log}, nil
}

// Save writes the full aggregate in one transaction: the room row is
// replaced, the player rows are rewritten. All-or-nothing, so a crash can
// never leave a half-written session behind.
func (s *SQLiteStore) Save(ctx context.Context, sess *game.Session) error {
	rec, players, err := toRecords(sess)
	if err != nil {
		return err
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(rec).Error; err != nil {
			return fmt.Errorf("writing room %d: %w", sess.RoomID, err)
		}
		if err := tx.Where("room_id = ?", sess.RoomID).Delete(&playerRecord{}).Error; err != nil {
			return fmt.Errorf("clearing players for room %d: %w", sess.RoomID, err)
		}
		if len(players) == 0 {
			return nil
		}
		if err := tx.Create(&players).Error; err != nil {
			return fmt.Errorf("writing players for room %d: %w", sess.RoomID, err)
		}
		return nil
	})
}

// Get loads one session by room id.
func (s *SQLiteStore) Get(ctx context.Context, roomID int64) (*game.Session, error) {
	var rec roomRecord
	err := s.db.WithContext(ctx).First(&rec, "room_id = ?", roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("room %d: %w", roomID, game.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading room %d: %w", roomID, err)
	}
	return s.load(ctx, &rec)
}

// Active loads every session whose state is neither Idle nor Ended.
func (s *SQLiteStore) Active(ctx context.Context) ([]*game.Session, error) {
	var recs []roomRecord
	err := s.db.WithContext(ctx).
		Where("state NOT IN ?", []string{string(game.StateIdle), string(game.StateEnded)}).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("listing active rooms: %w", err)
	}

	out := make([]*game.Session, 0, len(recs))
	for i := range recs {
		sess, err := s.load(ctx, &recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// Delete removes the room and its players.
func (s *SQLiteStore) Delete(ctx context.Context, roomID int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&playerRecord{}).Error; err != nil {
			return err
		}
		return tx.Where("room_id = ?", roomID).Delete(&roomRecord{}).Error
	})
}

func (s *SQLiteStore) load(ctx context.Context, rec *roomRecord) (*game.Session, error) {
	var players []playerRecord
	err := s.db.WithContext(ctx).
		Where("room_id = ?", rec.RoomID).
		Order("position").
		Find(&players).Error
	if err != nil {
		return nil, fmt.Errorf("reading players for room %d: %w", rec.RoomID, err)
	}
	return fromRecords(rec, players)
}

func toRecords(sess *game.Session) (*roomRecord, []playerRecord, error) {
	cursed, err := json.Marshal(sess.Cursed)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding cursed set: %w", err)
	}
	votes, err := json.Marshal(sess.Votes)
	if err != nil {
		return nil, nil, fmt.Errorf("encoding votes: %w", err)
	}

	rec := &roomRecord{
		RoomID:             sess.RoomID,
		State:              string(sess.State),
		OwnerID:            sess.OwnerID,
		RegistrationCursor: sess.RegistrationCursor,
		AwaitingNickname:   sess.AwaitingNickname,
		KillerID:           sess.KillerID,
		Cursed:             string(cursed),
		Votes:              string(votes),
	}
	if !sess.VoteDeadline.IsZero() {
		deadline := sess.VoteDeadline
		rec.VoteDeadline = &deadline
	}

	players := make([]playerRecord, 0, len(sess.Players))
	for i, p := range sess.Players {
		players = append(players, playerRecord{
			RoomID:      sess.RoomID,
			UserID:      p.UserID,
			Position:    i,
			DisplayName: p.DisplayName,
			Nickname:    p.Nickname,
			Role:        string(p.Role),
			Active:      p.Active,
		})
	}
	return rec, players, nil
}

func fromRecords(rec *roomRecord, players []playerRecord) (*game.Session, error) {
	sess := &game.Session{
		RoomID:             rec.RoomID,
		State:              game.State(rec.State),
		OwnerID:            rec.OwnerID,
		RegistrationCursor: rec.RegistrationCursor,
		AwaitingNickname:   rec.AwaitingNickname,
		KillerID:           rec.KillerID,
		Cursed:             make(map[int64]bool),
		Votes:              make(map[int64]int64),
	}
	if rec.Cursed != "" {
		if err := json.Unmarshal([]byte(rec.Cursed), &sess.Cursed); err != nil {
			return nil, fmt.Errorf("decoding cursed set for room %d: %w", rec.RoomID, err)
		}
	}
	if rec.Votes != "" {
		if err := json.Unmarshal([]byte(rec.Votes), &sess.Votes); err != nil {
			return nil, fmt.Errorf("decoding votes for room %d: %w", rec.RoomID, err)
		}
	}
	if rec.VoteDeadline != nil {
		sess.VoteDeadline = *rec.VoteDeadline
	}

	sess.Players = make([]*game.Player, 0, len(players))
	for _, p := range players {
		sess.Players = append(sess.Players, &game.Player{
			UserID:      p.UserID,
			DisplayName: p.DisplayName,
			Nickname:    p.Nickname,
			Role:        game.Role(p.Role),
			Active:      p.Active,
		})
	}
	return sess, nil
}
