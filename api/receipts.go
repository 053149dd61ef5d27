package api

import (
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sizemo/ocreceipt/internal/auth"
	"github.com/sizemo/ocreceipt/internal/db"
	"github.com/sizemo/ocreceipt/internal/models"
	"github.com/sizemo/ocreceipt/internal/ocr"
)

// UploadReceipt accepts an image or PDF, stages it in the blob store and
// queues an ingestion job. Processing happens asynchronously; the caller
// polls the returned job.
func (h *Handler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.sendError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)
	if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	originalName := header.Filename
	if originalName == "" {
		originalName = "receipt"
	}
	contentType := strings.ToLower(header.Header.Get("Content-Type"))
	ext := strings.ToLower(filepath.Ext(originalName))

	isPDF := contentType == "application/pdf" || ext == ".pdf"
	isImage := strings.HasPrefix(contentType, "image/") || ext == ".heic" || ext == ".heif"
	if !isImage && !isPDF {
		h.sendError(w, http.StatusBadRequest, "only image and PDF uploads are supported")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "failed to read upload")
		return
	}
	if len(data) == 0 {
		h.sendError(w, http.StatusBadRequest, "uploaded file is empty")
		return
	}

	if isPDF {
		contentType = "application/pdf"
		ext = ".pdf"
	} else if ext == "" {
		ext = extensionForType(contentType)
	}

	stagedName := "uploads/" + uuid.NewString() + ext
	if err := h.blobs.Put(r.Context(), stagedName, data, contentType); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to stage upload")
		return
	}

	job := &models.UploadJob{
		ID:               uuid.New(),
		Status:           models.JobQueued,
		OriginalFilename: originalName,
		StoredFilename:   stagedName,
		ContentType:      contentType,
		CreatedByUserID:  claims.UserID,
	}
	if err := h.store.CreateJob(r.Context(), job); err != nil {
		h.blobs.Delete(r.Context(), stagedName)
		h.sendError(w, http.StatusInternalServerError, "failed to create upload job")
		return
	}

	h.queue.Enqueue(job.ID)
	h.sendJSON(w, http.StatusAccepted, job)
}

func extensionForType(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/heic", "image/heif":
		return ".heic"
	case "image/webp":
		return ".webp"
	default:
		return ".jpg"
	}
}

// GetUploadJob returns a job snapshot for status polling.
func (h *Handler) GetUploadJob(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.store.GetJob(r.Context(), id)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "upload job not found")
		return
	}
	h.sendJSON(w, http.StatusOK, job)
}

// GetReceipts lists receipts, newest first, with optional filters.
func (h *Handler) GetReceipts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := db.ReceiptFilter{Merchant: q.Get("merchant")}

	if v := q.Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid date_from")
			return
		}
		filter.DateFrom = &t
	}
	if v := q.Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid date_to")
			return
		}
		filter.DateTo = &t
	}
	if v := q.Get("needs_review"); v != "" {
		needsReview, err := strconv.ParseBool(v)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid needs_review")
			return
		}
		filter.NeedsReview = &needsReview
	}
	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	receipts, err := h.store.ListReceipts(r.Context(), filter)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to list receipts")
		return
	}
	if receipts == nil {
		receipts = []models.Receipt{}
	}
	h.sendJSON(w, http.StatusOK, receipts)
}

// MerchantsResponse lists accumulated merchant names, for autocomplete
// in review tooling.
type MerchantsResponse struct {
	Merchants []string `json:"merchants"`
}

// GetMerchants returns known merchant names, optionally narrowed to a
// prefix.
func (h *Handler) GetMerchants(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit := 0
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	names, err := h.store.ListMerchants(r.Context(), q.Get("query"), limit)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to list merchants")
		return
	}
	if names == nil {
		names = []string{}
	}
	h.sendJSON(w, http.StatusOK, MerchantsResponse{Merchants: names})
}

// GetReceipt returns one receipt.
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	receipt, err := h.store.GetReceipt(r.Context(), id)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "receipt not found")
		return
	}
	h.sendJSON(w, http.StatusOK, receipt)
}

// ReceiptUpdateRequest is a manual correction body. Omitted fields keep
// their extracted values.
type ReceiptUpdateRequest struct {
	Merchant       *string          `json:"merchant"`
	PurchaseDate   *string          `json:"purchase_date"`
	TotalAmount    *decimal.Decimal `json:"total_amount"`
	SalesTaxAmount *decimal.Decimal `json:"sales_tax_amount"`
}

// UpdateReceipt applies a manual correction and clears the review flag.
func (h *Handler) UpdateReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	var req ReceiptUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	upd := db.ReceiptUpdate{
		Merchant:       req.Merchant,
		TotalAmount:    req.TotalAmount,
		SalesTaxAmount: req.SalesTaxAmount,
	}
	if req.PurchaseDate != nil {
		t, err := time.Parse("2006-01-02", *req.PurchaseDate)
		if err != nil {
			h.sendError(w, http.StatusBadRequest, "invalid purchase_date, expected YYYY-MM-DD")
			return
		}
		upd.PurchaseDate = &t
	}

	receipt, err := h.store.UpdateReceipt(r.Context(), id, upd)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "receipt not found")
		return
	}
	h.sendJSON(w, http.StatusOK, receipt)
}

// UpdateReceiptReview flips the review flag without touching fields.
func (h *Handler) UpdateReceiptReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	var req struct {
		NeedsReview bool `json:"needs_review"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	receipt, err := h.store.SetReceiptReview(r.Context(), id, req.NeedsReview)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "receipt not found")
		return
	}
	h.sendJSON(w, http.StatusOK, receipt)
}

// DeleteReceipt removes a receipt and its stored image.
func (h *Handler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	image, _ := h.store.GetReceiptImage(r.Context(), id)

	if err := h.store.DeleteReceipt(r.Context(), id); err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to delete receipt")
		return
	}
	if image != nil {
		h.blobs.Delete(r.Context(), image.StoredFilename)
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetReceiptImage streams the stored receipt file as uploaded.
func (h *Handler) GetReceiptImage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	image, err := h.store.GetReceiptImage(r.Context(), id)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "receipt image not found")
		return
	}

	data, err := h.blobs.Get(r.Context(), image.StoredFilename)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "receipt image not found")
		return
	}

	contentType := image.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

// GetReceiptPreview returns a browser-renderable preview: PDFs come back
// as a PNG of their first page, images as stored.
func (h *Handler) GetReceiptPreview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.sendError(w, http.StatusBadRequest, "invalid receipt id")
		return
	}

	image, err := h.store.GetReceiptImage(r.Context(), id)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "receipt image not found")
		return
	}

	data, err := h.blobs.Get(r.Context(), image.StoredFilename)
	if err != nil {
		h.sendError(w, http.StatusNotFound, "receipt image not found")
		return
	}

	isPDF := image.ContentType == "application/pdf" ||
		strings.HasSuffix(strings.ToLower(image.StoredFilename), ".pdf")
	if !isPDF {
		contentType := image.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		w.Write(data)
		return
	}

	png, err := ocr.RenderPagePNG(data, 0, h.config.OCR.PDFScale)
	if err != nil {
		h.sendError(w, http.StatusInternalServerError, "failed to render PDF preview")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}
