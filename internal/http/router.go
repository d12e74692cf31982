package http

import (
	"net/http"
)

type RouterConfig struct {
	Profiles      *ProfileHandler
	Groups        *GroupHandler
	Availability  *AvailabilityHandler
	Confirmations *ConfirmationHandler
	Calendar      *CalendarHandler
	// Identity guards every API route. /healthz is served without it.
	Identity   func(http.Handler) http.Handler
	Middleware []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	guard := func(fn http.HandlerFunc) http.Handler {
		if cfg.Identity == nil {
			return fn
		}
		return cfg.Identity(fn)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if cfg.Profiles != nil {
		mux.Handle("GET /me", guard(cfg.Profiles.Get))
		mux.Handle("PUT /me", guard(cfg.Profiles.Save))
	}

	if cfg.Groups != nil {
		mux.Handle("POST /groups", guard(cfg.Groups.Create))
		mux.Handle("GET /groups", guard(cfg.Groups.List))
		mux.Handle("GET /groups/stream", guard(cfg.Groups.Stream))
		mux.Handle("GET /groups/{id}", guard(cfg.Groups.Get))
		mux.Handle("DELETE /groups/{id}", guard(cfg.Groups.Delete))
		mux.Handle("POST /groups/{id}/join", guard(cfg.Groups.Join))
		mux.Handle("POST /groups/{id}/participants", guard(cfg.Groups.AddParticipant))
		mux.Handle("PUT /groups/{id}/reminder", guard(cfg.Groups.SetReminder))
		mux.Handle("GET /groups/{id}/reminder", guard(cfg.Groups.GetReminder))
	}

	if cfg.Availability != nil {
		mux.Handle("PUT /groups/{id}/availability", guard(cfg.Availability.Submit))
		mux.Handle("GET /groups/{id}/availability", guard(cfg.Availability.Mine))
		mux.Handle("POST /groups/{id}/availability/toggle", guard(cfg.Availability.Toggle))
		mux.Handle("POST /groups/{id}/availability/range", guard(cfg.Availability.AddRange))
		mux.Handle("GET /groups/{id}/heatmap", guard(cfg.Availability.HeatMap))
		mux.Handle("GET /groups/{id}/heatmap/cell", guard(cfg.Availability.Cell))
		mux.Handle("GET /groups/{id}/heatmap/stream", guard(cfg.Availability.Stream))
	}

	if cfg.Confirmations != nil {
		mux.Handle("POST /groups/{id}/confirmations", guard(cfg.Confirmations.Confirm))
		mux.Handle("PUT /activities/{id}", guard(cfg.Confirmations.EditActivity))
	}

	if cfg.Calendar != nil {
		mux.Handle("GET /calendar", guard(cfg.Calendar.List))
		mux.Handle("GET /calendar.ics", guard(cfg.Calendar.Export))
		mux.Handle("DELETE /calendar/{id}", guard(cfg.Calendar.Delete))
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}
