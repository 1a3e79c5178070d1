// Package server exposes the small HTTP surface next to the bot: a
// health probe and a token-guarded CSV export of an event's roster.
package server

import (
	"crypto/hmac"
	"encoding/csv"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/lululufr/Discord-CTFtime-event/internal/config"
	"github.com/lululufr/Discord-CTFtime-event/internal/registry"
	"github.com/lululufr/Discord-CTFtime-event/internal/util"
)

func New(cfg config.Config, reg *registry.Engine, ready func() bool, logger *slog.Logger) *http.Server {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if ready != nil && !ready() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// CSV roster export. The token is an HMAC over "export:<id>" with
	// the shared export secret, so links can be handed out without
	// exposing the secret itself.
	mux.HandleFunc("/export/event.csv", func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("id")
		token := r.URL.Query().Get("token")
		if id == "" || token == "" {
			http.Error(w, "id and token required", http.StatusBadRequest)
			return
		}
		want := util.HMACSHA256Hex(cfg.ExportSecret, "export:"+id)
		if !hmac.Equal([]byte(token), []byte(want)) {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}

		info, err := reg.GetEvent(r.Context(), id)
		if errors.Is(err, registry.ErrNotFound) {
			http.Error(w, "no such event", http.StatusNotFound)
			return
		}
		if err != nil {
			logger.Error("export", "id", id, "err", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="event.csv"`)
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"participant", "status"})
		for _, name := range info.Participants {
			_ = cw.Write([]string{name, "confirmed"})
		}
		for _, name := range info.MaybeParticipants {
			_ = cw.Write([]string{name, "maybe"})
		}
		cw.Flush()
	})

	return &http.Server{Addr: cfg.HTTPAddr, Handler: mux}
}
