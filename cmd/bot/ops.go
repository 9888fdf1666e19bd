package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"killergame/internal/game"
)

// roomSummary is the read-only view exposed on /rooms. Roles stay
// private: leaking the killer through an ops endpoint would spoil
// every game on the instance.
type roomSummary struct {
	RoomID  int64  `json:"roomId"`
	State   string `json:"state"`
	Players int    `json:"players"`
	Active  int    `json:"active"`
	Cursed  int    `json:"cursed"`
}

func startOps(addr string, st game.Store, log *zap.Logger) *http.Server {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/rooms", func(w http.ResponseWriter, req *http.Request) {
		sessions, err := st.Active(req.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		out := make([]roomSummary, 0, len(sessions))
		for _, s := range sessions {
			out = append(out, roomSummary{
				RoomID:  s.RoomID,
				State:   string(s.State),
				Players: len(s.Players),
				Active:  s.ActiveCount(),
				Cursed:  len(s.Cursed),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(out)
	})

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("ops server listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("ops server failed", zap.Error(err))
		}
	}()
	return srv
}
