/*
handlers.go - HTTP API handlers for the inquiry desk

PURPOSE:
  Exposes the desk service via REST API. Handles HTTP request/response,
  JSON serialization, uploads and downloads, and delegates to desk.Service.

ENDPOINTS:
  Session:
    POST   /api/login                          Start a session
    POST   /api/logout                         End the session
    POST   /api/password                       Change own password

  Periods:
    GET    /api/periods                        Stored periods and years
    GET    /api/periods/{year}/{month}/records Scoped, filtered view
    PUT    /api/periods/{year}/{month}/records Reconcile an edited view
    POST   /api/periods/{year}/{month}/import  Replace store from upload (admin)
    POST   /api/periods/{year}/{month}/delete-request  Arm delete (admin)
    DELETE /api/periods/{year}/{month}         Delete store (admin, armed)
    GET    /api/periods/{year}/{month}/export  Download csv or xlsx
    GET    /api/periods/{year}/{month}/audit   Audit history (admin)

REQUEST FLOW:
  1. Authenticate bearer token (requireSession)
  2. Parse and validate input
  3. Call desk.Service
  4. Serialize response
  5. Map errors to status codes

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, missing columns, unsupported period or status
  - 401: Missing session, wrong credentials
  - 403: Agent calling an admin operation
  - 409: Delete without a matching delete-request
  - 500: Storage failures

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - desk/service.go: Operations
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/warp/inquiry-desk/desk"
	"github.com/warp/inquiry-desk/inquiry"
	"github.com/warp/inquiry-desk/session"
	"github.com/warp/inquiry-desk/spreadsheet"
	"github.com/warp/inquiry-desk/store/csvfile"
)

const (
	maxUploadBytes    = 32 << 20
	defaultAuditLimit = 50

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Desk     *desk.Service
	Sessions *session.Manager
	Logger   *zap.Logger

	validate *validator.Validate
}

// NewHandler creates a new handler.
func NewHandler(d *desk.Service, sessions *session.Manager, logger *zap.Logger) *Handler {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{
		Desk:     d,
		Sessions: sessions,
		Logger:   logger,
		validate: v,
	}
}

type ctxKey struct{}

// requireSession rejects requests without a live bearer token and stores
// the session in the request context.
func (h *Handler) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Login required", nil)
			return
		}
		s, err := h.Sessions.Get(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Login required", err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, s)))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	token = strings.TrimSpace(token)
	return token, found && token != ""
}

func sessionFrom(r *http.Request) session.Session {
	s, _ := r.Context().Value(ctxKey{}).(session.Session)
	return s
}

func actorFrom(r *http.Request) desk.Actor {
	s := sessionFrom(r)
	return desk.Actor{ID: s.Identity, Role: s.Role}
}

// =============================================================================
// SESSION HANDLERS
// =============================================================================

// Login verifies credentials and starts a session.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !h.decode(w, r, &req) {
		return
	}

	ident, err := h.Desk.Login(r.Context(), req.ID, req.Password)
	if err != nil {
		h.writeDomainError(w, "Invalid id or password", err)
		return
	}

	s := h.Sessions.Start(ident)
	writeJSON(w, http.StatusOK, LoginResponse{
		Token:     s.Token,
		Identity:  s.Identity,
		Role:      string(s.Role),
		RoleLabel: s.Role.Label(),
	})
}

// Logout ends the current session.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.Sessions.End(sessionFrom(r).Token)
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// ChangePassword changes the password of the logged-in identity.
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req PasswordRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.Desk.ChangePassword(r.Context(), actorFrom(r), req.OldPassword, req.NewPassword); err != nil {
		h.writeDomainError(w, "Failed to change password", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// ListPeriods returns the stored periods and the selectable years.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	periods, err := h.Desk.Periods(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list periods", err)
		return
	}

	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = PeriodDTO{
			ID:    string(p.ID),
			Year:  p.Period.Year,
			Month: int(p.Period.Month),
			Label: p.Period.String(),
		}
	}
	writeJSON(w, http.StatusOK, PeriodsResponse{Periods: dtos, Years: h.Desk.Locator().Years})
}

// GetRecords returns the records of a period visible to the caller.
func (h *Handler) GetRecords(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	status, err := inquiry.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		h.writeDomainError(w, "Invalid status filter", err)
		return
	}

	view, err := h.Desk.View(r.Context(), actorFrom(r), p, status)
	if err != nil {
		h.writeDomainError(w, "Failed to load records", err)
		return
	}
	writeJSON(w, http.StatusOK, toViewResponse(view, status))
}

// SaveRecords reconciles the submitted view into the period store.
func (h *Handler) SaveRecords(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	var req SaveRecordsRequest
	if !h.decode(w, r, &req) {
		return
	}

	edited := make([]inquiry.Record, len(req.Records))
	for i, d := range req.Records {
		rec, err := fromRecordDTO(d)
		if err != nil {
			h.writeDomainError(w, "Invalid status in row "+strconv.Itoa(i+1), err)
			return
		}
		edited[i] = rec
	}

	result, err := h.Desk.Save(r.Context(), actorFrom(r), p, edited)
	if err != nil {
		h.writeDomainError(w, "Failed to save records", err)
		return
	}
	writeJSON(w, http.StatusOK, toSaveResponse(result))
}

// ImportPeriod replaces the period store with an uploaded spreadsheet.
// The upload is the multipart form field "file".
func (h *Handler) ImportPeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	actor := actorFrom(r)
	if actor.Role != inquiry.RoleAdmin {
		h.writeDomainError(w, "Import rejected", inquiry.ErrForbidden)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Upload field 'file' is required", err)
		return
	}
	defer file.Close()

	sheet, err := spreadsheet.ReadUpload(file, header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read upload", err)
		return
	}

	result, err := h.Desk.Import(r.Context(), actor, p, sheet)
	if err != nil {
		h.writeDomainError(w, "Import rejected", err)
		return
	}
	writeJSON(w, http.StatusCreated, ImportResponse{
		PeriodID: string(result.PeriodID),
		Imported: result.Imported,
		Replaced: result.Replaced,
	})
}

// RequestDelete arms deletion of a period for the current session.
func (h *Handler) RequestDelete(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	locator := h.Desk.Locator()
	if err := locator.Validate(p); err != nil {
		h.writeDomainError(w, "Unsupported period", err)
		return
	}

	id := locator.Resolve(p)
	if err := h.Sessions.RequestDelete(sessionFrom(r).Token, id); err != nil {
		h.writeDomainError(w, "Delete not allowed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"pending_delete": string(id)})
}

// DeletePeriod deletes a period store after a matching delete request.
func (h *Handler) DeletePeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	actor := actorFrom(r)
	if actor.Role != inquiry.RoleAdmin {
		h.writeDomainError(w, "Delete not allowed", inquiry.ErrForbidden)
		return
	}
	locator := h.Desk.Locator()
	if err := locator.Validate(p); err != nil {
		h.writeDomainError(w, "Unsupported period", err)
		return
	}

	id := locator.Resolve(p)
	token := sessionFrom(r).Token
	if err := h.Sessions.CheckDelete(token, id); err != nil {
		writeError(w, http.StatusConflict, "Request deletion before confirming it", err)
		return
	}
	// The request stays armed until the store is actually gone.
	if err := h.Desk.Delete(r.Context(), actor, p); err != nil {
		h.writeDomainError(w, "Failed to delete period", err)
		return
	}
	h.Sessions.ConfirmDelete(token, id)
	writeJSON(w, http.StatusOK, map[string]any{"deleted": string(id)})
}

// ExportPeriod downloads the caller's visible records as csv or xlsx.
func (h *Handler) ExportPeriod(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	status, err := inquiry.ParseStatusFilter(r.URL.Query().Get("status"))
	if err != nil {
		h.writeDomainError(w, "Invalid status filter", err)
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "xlsx" {
		writeError(w, http.StatusBadRequest, "Invalid format (use csv or xlsx)", nil)
		return
	}

	view, err := h.Desk.View(r.Context(), actorFrom(r), p, status)
	if err != nil {
		h.writeDomainError(w, "Failed to load records", err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "xlsx":
		contentType = contentTypeXLSX
		err = spreadsheet.WriteXLSX(&buf, view.Records)
	default:
		contentType = contentTypeCSV
		err = csvfile.Encode(&buf, view.Records)
	}
	if err != nil {
		h.writeDomainError(w, "Failed to build export", err)
		return
	}

	filename := desk.ExportFileName(view.PeriodID, "."+format)
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// ListAudit returns the audit history of a period.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	p, ok := parsePeriod(w, r)
	if !ok {
		return
	}
	limit := defaultAuditLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	entries, err := h.Desk.History(r.Context(), actorFrom(r), p, limit)
	if err != nil {
		h.writeDomainError(w, "Failed to load audit history", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

// parsePeriod reads {year} and {month} from the route. Range checks against
// the supported years happen in the desk.
func parsePeriod(w http.ResponseWriter, r *http.Request) (inquiry.Period, bool) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return inquiry.Period{}, false
	}
	month, err := strconv.Atoi(strings.TrimSuffix(chi.URLParam(r, "month"), "월"))
	if err != nil || month < 1 || month > 12 {
		writeError(w, http.StatusBadRequest, "Invalid month (use 1-12)", err)
		return inquiry.Period{}, false
	}
	return inquiry.Period{Year: year, Month: time.Month(month)}, true
}

// decode reads a JSON body into dst and validates its struct tags.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "Validation failed",
				Details: validationDetails(verrs),
			})
			return false
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// validationDetails maps each failing field to the tag it failed.
func validationDetails(verrs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		out[fe.Namespace()] = fe.Tag()
	}
	return out
}

// writeDomainError maps desk and domain errors to status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var schemaErr *inquiry.SchemaValidationError
	switch {
	case errors.As(err, &schemaErr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:          message,
			Details:        err.Error(),
			MissingColumns: schemaErr.Missing,
		})
	case errors.Is(err, inquiry.ErrForbidden):
		writeError(w, http.StatusForbidden, message, err)
	case inquiry.IsAuthError(err):
		writeError(w, http.StatusUnauthorized, message, err)
	case inquiry.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
