// AngelaMos | 2026
// handler.go

package subaccount

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/cvms-ng/cvms-backend/internal/account"
	"github.com/cvms-ng/cvms-backend/internal/core"
	"github.com/cvms-ng/cvms-backend/internal/middleware"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(
	r chi.Router,
	authenticator func(http.Handler) http.Handler,
) {
	creatorOnly := middleware.RequireRole(
		account.RoleCompany,
		account.RoleAgent,
	)

	r.Route("/sub-accounts", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(creatorOnly)

		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{slug}", h.GetBySlug)
		r.Post("/{slug}/toggle", h.Toggle)
	})

	r.Route("/departments", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/", h.ListDepartments)
	})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())

	var req CreateSubAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	detail, err := h.service.Create(r.Context(), callerID, req)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "department")
			return
		}
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToSubAccountResponse(detail))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())

	details, err := h.service.List(r.Context(), callerID)
	if err != nil {
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]any{
		"sub_accounts": ToSubAccountResponseList(details),
	})
}

func (h *Handler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())
	slug := chi.URLParam(r, "slug")

	detail, err := h.service.GetBySlug(r.Context(), callerID, slug)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "sub-account")
			return
		}
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubAccountResponse(detail))
}

func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())
	slug := chi.URLParam(r, "slug")

	detail, err := h.service.Toggle(r.Context(), callerID, slug)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "sub-account")
			return
		}
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToSubAccountResponse(detail))
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.ListDepartments(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]any{
		"departments": ToDepartmentResponseList(departments),
	})
}
