package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	ws "github.com/kazeca/holyfit-sub000/adapters/websocket"
	"github.com/kazeca/holyfit-sub000/core"
	"github.com/kazeca/holyfit-sub000/holyfit"
	"github.com/kazeca/holyfit-sub000/realtime"
)

func main() {
	// Use readable text logging for development/demo
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(textHandler))

	ctx := context.Background()
	hub := realtime.NewHub()
	svc := holyfit.New(holyfit.WithRealtime(hub))

	http.Handle("/ws", ws.Handler(hub))
	http.HandleFunc("/users/", func(w http.ResponseWriter, r *http.Request) {
		// routes: POST /users/{id}, POST /users/{id}/activities?type=WORKOUT&xp=100,
		// POST /users/{id}/shields, GET /users/{id}
		parts := split(r.URL.Path, '/')
		if len(parts) < 2 {
			http.NotFound(w, r)
			return
		}
		user := core.UserID(parts[1])
		switch r.Method {
		case http.MethodPost:
			if len(parts) == 2 {
				p, err := svc.CreateProgression(ctx, user)
				if err != nil {
					writeJSON(w, map[string]any{"err": errString(err)})
					return
				}
				writeJSON(w, p)
				return
			}
			if parts[2] == "activities" {
				typ := core.ActivityType(r.URL.Query().Get("type"))
				if typ == "" {
					typ = core.ActivityWorkout
				}
				xp, _ := strconv.ParseInt(r.URL.Query().Get("xp"), 10, 64)
				res, err := svc.ApplyActivity(ctx, user, core.ActivityEvent{Type: typ, XP: xp})
				writeJSON(w, map[string]any{"result": res, "err": errString(err)})
				return
			}
			if parts[2] == "shields" {
				p, err := svc.PurchaseShield(ctx, user)
				writeJSON(w, map[string]any{"shields": p.StreakShields, "err": errString(err)})
				return
			}
		case http.MethodGet:
			p, err := svc.GetProgression(ctx, user)
			if err != nil {
				http.Error(w, err.Error(), 500)
				return
			}
			writeJSON(w, p)
			return
		}
		http.NotFound(w, r)
	})

	slog.Info("starting demo server on :8080")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		slog.Error("demo server crashed", "error", err)
		os.Exit(1)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func errString(err error) any {
	if err == nil {
		return nil
	}
	return err.Error()
}

func split(p string, sep rune) []string {
	var parts []string
	current := make([]rune, 0, len(p))

	for _, r := range p {
		if r == sep {
			if len(current) > 0 {
				parts = append(parts, string(current))
				current = current[:0]
			}
			continue
		}
		current = append(current, r)
	}

	if len(current) > 0 {
		parts = append(parts, string(current))
	}

	return parts
}
