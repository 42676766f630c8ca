package preview

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
	"github.com/dealerdesk/dealerdesk/internal/sales"
)

// Handler exposes the editable preview session API.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers preview routes under the sales subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/{id}/preview/{docType}", func(r chi.Router) {
		r.Post("/", h.start)
		r.Patch("/fields/{field}", h.edit)
		r.Post("/reset", h.reset)
		r.Post("/save", h.save)
		r.Get("/pdf", h.pdf)
		r.Delete("/", h.close)
	})
}

type startBody struct {
	ShowStamp  bool `json:"show_stamp"`
	WithDogane bool `json:"with_dogane"`
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	saleID, docType, ok := h.sessionParams(w, r)
	if !ok {
		return
	}
	var body startBody
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &body); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Body must be valid JSON.")
			return
		}
	}
	session, err := h.service.Start(r.Context(), StartRequest{
		SaleID:     saleID,
		DocType:    docType,
		ShowStamp:  body.ShowStamp,
		WithDogane: body.WithDogane,
	})
	if err != nil {
		h.respondError(w, "start preview", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, session)
}

type editBody struct {
	Value string `json:"value"`
}

func (h *Handler) edit(w http.ResponseWriter, r *http.Request) {
	saleID, docType, ok := h.sessionParams(w, r)
	if !ok {
		return
	}
	var body editBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Body must be valid JSON.")
		return
	}
	session, err := h.service.Edit(r.Context(), saleID, docType, sales.FieldKey(chi.URLParam(r, "field")), body.Value)
	if err != nil {
		h.respondError(w, "edit preview field", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	saleID, docType, ok := h.sessionParams(w, r)
	if !ok {
		return
	}
	session, err := h.service.Reset(r.Context(), saleID, docType)
	if err != nil {
		h.respondError(w, "reset preview", err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	saleID, docType, ok := h.sessionParams(w, r)
	if !ok {
		return
	}
	sale, err := h.service.Save(r.Context(), saleID, docType)
	if err != nil {
		h.respondError(w, "save preview edits", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	saleID, docType, ok := h.sessionParams(w, r)
	if !ok {
		return
	}
	artifact, err := h.service.Preview(r.Context(), saleID, docType)
	if err != nil {
		h.respondError(w, "preview pdf", err)
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Bytes)))
	_, _ = w.Write(artifact.Bytes)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	saleID, docType, ok := h.sessionParams(w, r)
	if !ok {
		return
	}
	if err := h.service.Close(r.Context(), saleID, docType); err != nil {
		h.respondError(w, "close preview", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) sessionParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, sales.DocumentType, bool) {
	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Sale id must be a UUID.")
		return uuid.Nil, "", false
	}
	docType := sales.DocumentType(chi.URLParam(r, "docType"))
	if !docType.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Unknown document type.")
		return uuid.Nil, "", false
	}
	return saleID, docType, true
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	var verr *docgen.ValidationError
	switch {
	case errors.Is(err, ErrNoSession):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "No preview session is open for this document.")
	case errors.Is(err, ErrPreviewInFlight):
		httpx.Problem(w, http.StatusConflict, "Preview In Flight", "A preview is already being generated.")
	case errors.Is(err, sales.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "Sale not found.")
	case errors.Is(err, sales.ErrInvalidInput):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &verr):
		httpx.ProblemFields(w, http.StatusUnprocessableEntity, "Missing Required Fields",
			"The document cannot be generated until the listed fields are filled in.", verr.Missing)
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
