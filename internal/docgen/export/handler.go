package export

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/dispatch"
	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/platform/httpx"
	"github.com/dealerdesk/dealerdesk/internal/sales"
)

// Handler exposes the document export endpoint.
type Handler struct {
	logger     *slog.Logger
	sales      *sales.Service
	exporter   *Exporter
	dispatcher *dispatch.Dispatcher
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, saleSvc *sales.Service, exporter *Exporter, dispatcher *dispatch.Dispatcher) *Handler {
	return &Handler{logger: logger, sales: saleSvc, exporter: exporter, dispatcher: dispatcher}
}

// MountRoutes registers export routes under the sales subtree.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{id}/documents/{docType}/export", h.exportDocument)
}

type exportRequest struct {
	Share         dispatch.ShareMeta `json:"share"`
	PriceOverride *float64           `json:"price_override,omitempty"`
	TaxOverride   *float64           `json:"tax_override,omitempty"`
}

type shareResponse struct {
	Receipt  dispatch.Receipt `json:"receipt"`
	Filename string           `json:"filename"`
	Pages    int              `json:"pages"`
}

// exportDocument runs the pipeline and hands the artifact off per the
// requested intent. Download and print stream the PDF directly; share
// answers with the receipt carrying the link.
func (h *Handler) exportDocument(w http.ResponseWriter, r *http.Request) {
	saleID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Sale id must be a UUID.")
		return
	}
	docType := sales.DocumentType(chi.URLParam(r, "docType"))
	if !docType.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Unknown document type.")
		return
	}
	intent, err := dispatch.ParseIntent(r.URL.Query().Get("intent"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	var req exportRequest
	if r.ContentLength > 0 {
		if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "Body must be valid JSON.")
			return
		}
	}

	sale, err := h.sales.Get(r.Context(), saleID)
	if err != nil {
		if errors.Is(err, sales.ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "Sale not found.")
			return
		}
		h.logger.Error("load sale for export", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	artifact, err := h.exporter.Export(r.Context(), *sale, docgen.RenderOptions{
		DocType:       docType,
		ShowStamp:     boolQuery(r, "stamp"),
		WithDogane:    boolQuery(r, "dogane"),
		PriceOverride: req.PriceOverride,
		TaxOverride:   req.TaxOverride,
	})
	if err != nil {
		h.respondExportError(w, docType, err)
		return
	}

	receipt, err := h.dispatcher.Deliver(r.Context(), artifact, intent, req.Share)
	if err != nil {
		h.logger.Error("deliver document", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	if intent == dispatch.IntentShare && receipt.Opened {
		httpx.JSON(w, http.StatusOK, shareResponse{Receipt: receipt, Filename: artifact.Filename, Pages: artifact.Pages})
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", dispatch.Disposition(receipt.Intent, artifact.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Bytes)))
	if !receipt.Opened {
		// Degraded share hand-off; the client shows a notice.
		w.Header().Set("X-Delivery-Degraded", "true")
	}
	_, _ = w.Write(artifact.Bytes)
}

func (h *Handler) respondExportError(w http.ResponseWriter, docType sales.DocumentType, err error) {
	var verr *docgen.ValidationError
	var aerr *docgen.AssetError
	switch {
	case errors.As(err, &verr):
		httpx.ProblemFields(w, http.StatusUnprocessableEntity, "Missing Required Fields",
			"The document cannot be generated until the listed fields are filled in.", verr.Missing)
	case errors.As(err, &aerr):
		httpx.Problem(w, http.StatusBadGateway, "Could Not Generate PDF",
			"An embedded image failed to load. Please retry.")
	case errors.Is(err, docgen.ErrRenderEnvironment):
		httpx.Problem(w, http.StatusServiceUnavailable, "Render Service Unavailable",
			"The PDF rendering service is unreachable. Please retry.")
	default:
		h.logger.Error("export document", slog.String("doc_type", string(docType)), slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func boolQuery(r *http.Request, key string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(key))
	return v
}
