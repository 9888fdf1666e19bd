package game

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// timerSlot names the one delayed callback a room may have armed per concern.
type timerSlot int

const (
	slotNickname timerSlot = iota
	slotVote
)

// armTimer schedules ev to be dispatched after d, replacing whatever was armed
// in the slot. The generation counter makes a stale firing a provable no-op:
// the callback re-acquires the room mutex and bails unless its generation is
// still current, so a timeout racing a disarming event can never double-fire.
// The room mutex must be held.
func (e *Engine) armTimer(roomID int64, h *roomHandle, slot timerSlot, d time.Duration, ev event) {
	h.gens[slot]++
	gen := h.gens[slot]
	if t := h.timers[slot]; t != nil {
		t.Stop()
	}
	h.timers[slot] = time.AfterFunc(d, func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.gens[slot] != gen {
			return // disarmed or re-armed since scheduling
		}
		delete(h.timers, slot)
		if err := e.handleLocked(context.Background(), roomID, h, ev); err != nil {
			e.log.Warn("timer event rejected", zap.Int64("room", roomID), zap.Error(err))
		}
	})
}

// disarmTimer cancels the slot's timer. Bumping the generation also
// invalidates a callback that already fired and is waiting on the room mutex.
// The room mutex must be held.
func (e *Engine) disarmTimer(h *roomHandle, slot timerSlot) {
	h.gens[slot]++
	if t := h.timers[slot]; t != nil {
		t.Stop()
		delete(h.timers, slot)
	}
}

func (e *Engine) disarmAll(h *roomHandle) {
	e.disarmTimer(h, slotNickname)
	e.disarmTimer(h, slotVote)
}
