package buyers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/propstack/buyer-intake/internal/auth"
	"github.com/propstack/buyer-intake/internal/history"
	"github.com/propstack/buyer-intake/internal/observability/metrics"
	"github.com/propstack/buyer-intake/pkg/logging"
)

// HistoryLister reads a lead's audit trail. history.Service implements it
// against Postgres; MemoryRepository implements it for in-process runs.
type HistoryLister interface {
	ListForBuyer(ctx context.Context, buyerID, ownerID string) ([]history.Entry, error)
}

// Handler serves the lead CRUD, import, and export endpoints. Every request
// reaching it already passed the session middleware, so the owner id is
// always on the context.
type Handler struct {
	repo     Repository
	importer *Importer
	hist     HistoryLister
	metrics  *metrics.BuyerMetrics
	logger   *logging.Logger
}

func NewHandler(repo Repository, importer *Importer, hist HistoryLister, m *metrics.BuyerMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, importer: importer, hist: hist, metrics: m, logger: logger}
}

// List serves GET /buyers with filtering, search, sorting, and pagination.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	page, err := h.repo.List(r.Context(), ownerID, filterFromQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, page)
}

// Get serves GET /buyers/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	lead, err := h.repo.Get(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, lead)
}

// Create serves POST /buyers. It accepts JSON and HTML form bodies.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	in, err := decodeInput(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	lead, err := h.repo.Create(r.Context(), ownerID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.ObserveOperation("create")
	h.respond(w, http.StatusCreated, lead)
}

// updateRequest is the update body: the full replacement record plus the
// revision the client last saw.
type updateRequest struct {
	LeadInput
	Revision *int64 `json:"revision"`
}

// Update serves PUT /buyers/{id}. The revision field is the concurrency
// token; a stale one gets 409 and nothing is written.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.badRequest(w, fmt.Errorf("invalid request body"))
		return
	}
	if req.Revision == nil {
		h.badRequest(w, fmt.Errorf("revision is required"))
		return
	}

	lead, err := h.repo.Update(r.Context(), ownerID, chi.URLParam(r, "id"), &req.LeadInput, *req.Revision)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.ObserveOperation("update")
	h.respond(w, http.StatusOK, lead)
}

// History serves GET /buyers/{id}/history, newest change first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	// Resolve the lead first so a foreign or missing id reads as 404, not
	// an empty list.
	if _, err := h.repo.Get(r.Context(), ownerID, id); err != nil {
		h.fail(w, r, err)
		return
	}
	entries, err := h.hist.ListForBuyer(r.Context(), id, ownerID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, map[string]any{"history": entries})
}

type importRequest struct {
	Buyers []*LeadInput `json:"buyers"`
}

// Import serves POST /buyers/import. JSON bodies carry {"buyers":[...]};
// multipart bodies carry a CSV upload in the "file" field.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	rows, err := h.importRows(r)
	if err != nil {
		h.badRequest(w, err)
		return
	}

	result, err := h.importer.Import(r.Context(), ownerID, rows)
	if errors.Is(err, ErrNoValidRows) {
		h.respond(w, http.StatusUnprocessableEntity, result)
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.metrics.ObserveOperation("import")
	h.metrics.ObserveImportedRows(result.Imported)
	h.respond(w, http.StatusOK, result)
}

func (h *Handler) importRows(r *http.Request) ([]ImportRow, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, err := r.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("missing file upload")
		}
		defer file.Close()
		return ParseCSV(file, h.importer.maxRows)
	}

	var req importRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, fmt.Errorf("invalid request body")
	}
	if len(req.Buyers) == 0 {
		return nil, fmt.Errorf("no rows submitted")
	}
	return WrapInputs(req.Buyers), nil
}

// Export serves GET /buyers/export: the current filter set as a CSV
// download, unpaginated.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ownerID, _ := auth.UserIDFromContext(r.Context())

	leads, err := h.repo.ListAll(r.Context(), ownerID, filterFromQuery(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="buyers_export.csv"`)
	if err := WriteCSV(w, leads); err != nil {
		h.logger.Error("streaming export", "error", err)
		return
	}
	h.metrics.ObserveOperation("export")
	h.metrics.ObserveExportedRows(len(leads))
}

// Routes mounts the handler under the caller's router group.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/export", h.Export)
	r.Post("/import", h.Import)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Get("/{id}/history", h.History)
}

func filterFromQuery(r *http.Request) ListFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	return ListFilter{
		City:         q.Get("city"),
		PropertyType: q.Get("propertyType"),
		Status:       q.Get("status"),
		Timeline:     q.Get("timeline"),
		Search:       q.Get("search"),
		Page:         page,
		SortBy:       q.Get("sortBy"),
		SortOrder:    q.Get("sortOrder"),
	}
}

// decodeInput reads a lead from either a JSON or form body.
func decodeInput(r *http.Request) (*LeadInput, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/x-www-form-urlencoded") || strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseForm(); err != nil {
			return nil, fmt.Errorf("invalid form body")
		}
		return inputFromForm(r), nil
	}

	var in LeadInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		return nil, fmt.Errorf("invalid request body")
	}
	return &in, nil
}

func inputFromForm(r *http.Request) *LeadInput {
	in := &LeadInput{
		FullName:     r.PostFormValue("fullName"),
		Email:        r.PostFormValue("email"),
		Phone:        r.PostFormValue("phone"),
		City:         r.PostFormValue("city"),
		PropertyType: r.PostFormValue("propertyType"),
		BHK:          r.PostFormValue("bhk"),
		Purpose:      r.PostFormValue("purpose"),
		Timeline:     r.PostFormValue("timeline"),
		Source:       r.PostFormValue("source"),
		Status:       r.PostFormValue("status"),
		Notes:        r.PostFormValue("notes"),
		Tags:         splitTags(r.PostFormValue("tags")),
	}
	if v := r.PostFormValue("budgetMin"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			in.BudgetMin = &n
		}
	}
	if v := r.PostFormValue("budgetMax"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			in.BudgetMax = &n
		}
	}
	return in
}

func (h *Handler) respond(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("encoding response", "error", err)
	}
}

func (h *Handler) badRequest(w http.ResponseWriter, err error) {
	h.respond(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
}

// fail maps domain errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	if fe, ok := AsFieldErrors(err); ok {
		h.respond(w, http.StatusBadRequest, map[string]any{"errors": fe})
		return
	}
	switch {
	case errors.Is(err, ErrNotFound):
		h.respond(w, http.StatusNotFound, map[string]string{"error": "buyer not found"})
	case errors.Is(err, ErrConflict):
		h.metrics.ObserveConflict()
		h.respond(w, http.StatusConflict, map[string]string{"error": "record changed, please refresh"})
	default:
		h.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		h.respond(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}
