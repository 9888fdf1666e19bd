package store

import (
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"killergame/internal/game"
)

// StartJanitor schedules a purge of finished sessions older than maxAge.
// The returned cron owns the schedule; stop it on shutdown.
func (s *SQLiteStore) StartJanitor(schedule string, maxAge time.Duration) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		s.purgeEnded(maxAge)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	return c, nil
}

func (s *SQLiteStore) purgeEnded(maxAge time.Duration) {
	cutoff := time.Now().Add(-maxAge)

	var stale []int64
	err := s.db.Model(&roomRecord{}).
		Where("state = ? AND updated_at <= ?", string(game.StateEnded), cutoff).
		Pluck("room_id", &stale).Error
	if err != nil {
		s.log.Error("janitor scan failed", zap.Error(err))
		return
	}
	if len(stale) == 0 {
		return
	}

	if err := s.db.Where("room_id IN ?", stale).Delete(&playerRecord{}).Error; err != nil {
		s.log.Error("janitor player purge failed", zap.Error(err))
		return
	}
	res := s.db.Where("room_id IN ?", stale).Delete(&roomRecord{})
	if res.Error != nil {
		s.log.Error("janitor room purge failed", zap.Error(res.Error))
		return
	}
	s.log.Info("purged finished sessions", zap.Int64("rooms", res.RowsAffected))
}
