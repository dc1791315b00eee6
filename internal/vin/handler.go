// AngelaMos | 2026
// handler.go

package vin

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

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
	r.Route("/vins", func(r chi.Router) {
		r.Use(authenticator)

		r.Get("/search", h.Search)
		r.Post("/bulk-search", h.BulkSearch)
		r.Get("/history", h.History)
		r.Get("/history/{vin}", h.HistoryByVIN)
	})

	r.Route("/duty-files", func(r chi.Router) {
		r.Use(authenticator)
		r.Use(middleware.RequireAdmin)

		r.Post("/", h.Ingest)
		r.Get("/", h.ListUploads)
	})
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())

	var vins []string
	for _, part := range strings.Split(r.URL.Query().Get("vins"), ",") {
		if v := strings.TrimSpace(part); v != "" {
			vins = append(vins, v)
		}
	}

	results, err := h.service.Search(r.Context(), callerID, vins)
	if err != nil {
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]any{"data": results})
}

func (h *Handler) BulkSearch(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		core.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close() //nolint:errcheck // read-only handle

	results, err := h.service.BulkSearch(
		r.Context(), callerID, header.Filename, file,
	)
	if err != nil {
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]any{"data": results})
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())

	details, err := h.service.History(r.Context(), callerID)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, map[string]any{
		"search_histories": ToHistoryResponseList(details),
	})
}

func (h *Handler) HistoryByVIN(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())
	vin := chi.URLParam(r, "vin")

	detail, err := h.service.HistoryByVIN(r.Context(), callerID, vin)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "certificate")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToHistoryResponse(detail))
}

func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		core.BadRequest(w, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		core.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close() //nolint:errcheck // read-only handle

	upload, rows, err := h.service.Ingest(
		r.Context(), callerID, header.Filename, header.Size, file,
	)
	if err != nil {
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, ToUploadResponse(upload, rows))
}

func (h *Handler) ListUploads(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	uploads, total, err := h.service.ListUploads(
		r.Context(), pageSize, (page-1)*pageSize,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToUploadResponseList(uploads), page, pageSize, total)
}
