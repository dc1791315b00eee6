// AngelaMos | 2026
// handler.go

package audit

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/cvms-ng/cvms-backend/internal/core"
	"github.com/cvms-ng/cvms-backend/internal/middleware"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/auth-logs", h.ListAuthLogs)
	})
}

// ListAuthLogs returns the caller's own auth events; admins may inspect
// any account via the account_id query parameter.
func (h *Handler) ListAuthLogs(w http.ResponseWriter, r *http.Request) {
	params := ListParams{
		Page:     parseIntQuery(r, "page", 1),
		PageSize: parseIntQuery(r, "page_size", 20),
		Event:    r.URL.Query().Get("event"),
	}

	callerID := middleware.GetAccountID(r.Context())
	callerRole := middleware.GetAccountRole(r.Context())

	if callerRole == "admin" {
		params.AccountID = r.URL.Query().Get("account_id")
	} else {
		params.AccountID = callerID
	}

	entries, total, err := h.service.List(r.Context(), params)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(
		w,
		ToAuthLogResponseList(entries),
		params.Page,
		params.PageSize,
		total,
	)
}

func parseIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}

	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}

	return parsed
}
