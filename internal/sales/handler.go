package sales

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
)

// maxAttachmentSize bounds uploaded receipt/invoice scans.
const maxAttachmentSize = 10 << 20

// Handler exposes the sale record JSON API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers sale routes. Destructive routes are expected to
// be admin-gated by the caller.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/summary", h.summary)
	r.Get("/attachments/{attachmentID}", h.downloadAttachment)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Put("/{id}/overrides/{docType}", h.applyOverrides)
	r.Get("/{id}/attachments", h.listAttachments)
	r.Post("/{id}/attachments", h.addAttachment)
}

type listResponse struct {
	Sales []SaleRecord `json:"sales"`
	Total int          `json:"total"`
	Page  int          `json:"page"`
	Limit int          `json:"limit"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	req := ListSalesRequest{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := Status(raw)
		req.Status = &status
	}
	req.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	req.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	records, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.respondError(w, "list sales", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listResponse{Sales: records, Total: total, Page: req.Page, Limit: req.Limit})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Body must be valid JSON.")
		return
	}
	record, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.respondError(w, "create sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, record)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	record, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	var req UpdateSaleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Body must be valid JSON.")
		return
	}
	record, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.respondError(w, "update sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, "delete sale", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	var status *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := Status(raw)
		status = &s
	}
	summary, err := h.service.Summary(r.Context(), status)
	if err != nil {
		h.respondError(w, "financial summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

type overridesRequest struct {
	Values map[FieldKey]string `json:"values"`
}

func (h *Handler) applyOverrides(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	docType := DocumentType(chi.URLParam(r, "docType"))
	if !docType.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Unknown document type.")
		return
	}
	var req overridesRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Body must be valid JSON.")
		return
	}
	record, err := h.service.ApplyOverrides(r.Context(), id, docType, req.Values)
	if err != nil {
		h.respondError(w, "apply overrides", err)
		return
	}
	httpx.JSON(w, http.StatusOK, record)
}

func (h *Handler) addAttachment(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(maxAttachmentSize); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Body must be multipart form data.")
		return
	}
	purpose := AttachmentPurpose(r.FormValue("purpose"))
	if !purpose.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Unknown attachment purpose.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "A file part is required.")
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize))
	if err != nil {
		h.respondError(w, "read attachment", err)
		return
	}
	attachment, err := h.service.AddAttachment(r.Context(), id, purpose, header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		h.respondError(w, "add attachment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, attachment)
}

func (h *Handler) listAttachments(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	attachments, err := h.service.ListAttachments(r.Context(), id)
	if err != nil {
		h.respondError(w, "list attachments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, attachments)
}

func (h *Handler) downloadAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "attachmentID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Attachment id must be a UUID.")
		return
	}
	attachment, err := h.service.GetAttachment(r.Context(), id)
	if err != nil {
		h.respondError(w, "get attachment", err)
		return
	}
	w.Header().Set("Content-Type", attachment.MimeType)
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(attachment.Name))
	_, _ = w.Write(attachment.Data)
}

func (h *Handler) saleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Sale id must be a UUID.")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Record not found.")
	case errors.Is(err, ErrAlreadyExists):
		httpx.Problem(w, http.StatusConflict, "Duplicate", "Record already exists.")
	case errors.Is(err, ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
