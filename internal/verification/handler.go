// AngelaMos | 2026
// handler.go

package verification

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

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
	r.Route("/verifications", func(r chi.Router) {
		r.Use(authenticator)

		r.Post("/nin", h.VerifyNIN)
		r.Post("/cac", h.SubmitCAC)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)

			r.Get("/cac", h.ListCACRequests)
			r.Post("/cac/{id}/review", h.ReviewCAC)
		})
	})
}

func (h *Handler) VerifyNIN(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())

	var req VerifyNINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	resp, err := h.service.VerifyNIN(r.Context(), callerID, req.NIN)
	if err != nil {
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "account")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, resp)
}

func (h *Handler) SubmitCAC(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetAccountID(r.Context())

	if err := r.ParseMultipartForm(3 * maxDocumentSize); err != nil {
		core.BadRequest(w, "invalid multipart form")
		return
	}

	docs, err := extractDocuments(r)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}
	defer docs.close()

	request, err := h.service.SubmitCAC(r.Context(), callerID, *docs)
	if err != nil {
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "account")
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.Created(w, map[string]any{
		"message": "verification request submitted, please check your email",
		"request": ToCACRequestResponse(request),
	})
}

func (h *Handler) ListCACRequests(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" &&
		status != RequestStatusPending &&
		status != RequestStatusApproved &&
		status != RequestStatusRejected {
		core.BadRequest(w, "unknown status filter")
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	requests, total, err := h.service.ListRequests(
		r.Context(), status, pageSize, (page-1)*pageSize,
	)
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.Paginated(w, ToCACRequestResponseList(requests), page, pageSize, total)
}

func (h *Handler) ReviewCAC(w http.ResponseWriter, r *http.Request) {
	reviewerID := middleware.GetAccountID(r.Context())
	requestID := chi.URLParam(r, "id")

	var req ReviewCACRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	request, err := h.service.ReviewCAC(
		r.Context(), reviewerID, requestID, req.Decision,
	)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			core.NotFound(w, "verification request")
			return
		}
		if core.IsAppError(err) {
			core.JSONError(w, err)
			return
		}
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, ToCACRequestResponse(request))
}

func extractDocuments(r *http.Request) (*DocumentSet, error) {
	var docs DocumentSet

	fields := []struct {
		name string
		dst  *Document
	}{
		{"cac_certificate", &docs.CACCertificate},
		{"status_certificate", &docs.StatusCertificate},
		{"letter_of_authorization", &docs.LetterOfAuthorization},
	}

	for _, f := range fields {
		file, header, err := r.FormFile(f.name)
		if err != nil {
			docs.close()
			return nil, errors.New(f.name + " is required")
		}
		f.dst.File = file
		f.dst.Header = header
	}

	return &docs, nil
}

func (d *DocumentSet) close() {
	for _, doc := range []Document{
		d.CACCertificate,
		d.StatusCertificate,
		d.LetterOfAuthorization,
	} {
		if doc.File != nil {
			doc.File.Close() //nolint:errcheck // read-only handles
		}
	}
}
