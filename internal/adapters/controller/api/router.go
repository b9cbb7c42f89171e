package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cjfitness/notifier/pkg/logger/types"
	"github.com/cjfitness/notifier/pkg/response"
)

type scheduleInfo interface {
	NextRun(task string) (time.Time, bool)
}

// Handlers groups everything the router serves. Schedule may be nil.
type Handlers struct {
	Notifications *NotificationHandler
	Reminders     *ReminderHandler
	Schedule      scheduleInfo
	Tasks         []string
}

func NewRouter(h Handlers, logger *types.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(recoverer(logger))
	r.Use(requestLogger(logger))
	r.Use(observe)

	r.Get("/healthz", health(h.Schedule, h.Tasks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(noStore)
		r.Mount("/notifications", h.Notifications.Routes())
		r.Mount("/reminders", h.Reminders.Routes())
	})

	return r
}

func health(schedule scheduleInfo, tasks []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body := map[string]interface{}{"status": "ok"}
		if schedule != nil {
			next := make(map[string]time.Time, len(tasks))
			for _, task := range tasks {
				if at, ok := schedule.NextRun(task); ok {
					next[task] = at
				}
			}
			body["nextRuns"] = next
		}
		response.JSON(w, http.StatusOK, body)
	}
}
