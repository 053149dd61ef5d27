package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/sizemo/ocreceipt/internal/auth"
	"github.com/sizemo/ocreceipt/internal/db"
	"github.com/sizemo/ocreceipt/internal/models"
)

const (
	MaxUploadSize = 10 * 1024 * 1024 // 10MB
	Version       = "1.0.0"
)

// Store is the slice of the relational store the HTTP layer uses.
type Store interface {
	CreateJob(ctx context.Context, job *models.UploadJob) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.UploadJob, error)
	GetReceipt(ctx context.Context, id uuid.UUID) (*models.Receipt, error)
	ListReceipts(ctx context.Context, filter db.ReceiptFilter) ([]models.Receipt, error)
	UpdateReceipt(ctx context.Context, id uuid.UUID, upd db.ReceiptUpdate) (*models.Receipt, error)
	SetReceiptReview(ctx context.Context, id uuid.UUID, needsReview bool) (*models.Receipt, error)
	DeleteReceipt(ctx context.Context, id uuid.UUID) error
	GetReceiptImage(ctx context.Context, receiptID uuid.UUID) (*models.ReceiptImage, error)
	ListMerchants(ctx context.Context, prefix string, limit int) ([]string, error)
}

// Blobs is the file storage the HTTP layer stages uploads into.
type Blobs interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// Enqueuer hands accepted jobs to the ingestion queue.
type Enqueuer interface {
	Enqueue(id uuid.UUID)
}

// Handler handles HTTP requests for receipt ingestion
type Handler struct {
	config *models.Config
	store  Store
	blobs  Blobs
	queue  Enqueuer
	login  *auth.Service
}

// NewHandler creates a new API handler
func NewHandler(config *models.Config, store Store, blobs Blobs, queue Enqueuer, login *auth.Service) *Handler {
	return &Handler{
		config: config,
		store:  store,
		blobs:  blobs,
		queue:  queue,
		login:  login,
	}
}

// SetupRoutes configures the HTTP routes
func (h *Handler) SetupRoutes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/api/login", h.login.LoginHandler).Methods("POST")

	// Ingestion
	router.HandleFunc("/api/receipts/upload", h.UploadReceipt).Methods("POST")
	router.HandleFunc("/api/upload-jobs/{id}", h.GetUploadJob).Methods("GET")

	// Receipt CRUD
	router.HandleFunc("/api/receipts", h.GetReceipts).Methods("GET")
	router.HandleFunc("/api/merchants", h.GetMerchants).Methods("GET")
	router.HandleFunc("/api/receipt/{id}", h.GetReceipt).Methods("GET")
	router.HandleFunc("/api/receipt/{id}", h.UpdateReceipt).Methods("PUT")
	router.HandleFunc("/api/receipt/{id}", auth.RequireAdmin(h.DeleteReceipt)).Methods("DELETE")
	router.HandleFunc("/api/receipt/{id}/review", auth.RequireAdmin(h.UpdateReceiptReview)).Methods("PATCH")
	router.HandleFunc("/api/receipt/{id}/image", h.GetReceiptImage).Methods("GET")
	router.HandleFunc("/api/receipt/{id}/preview", h.GetReceiptPreview).Methods("GET")

	// Health check
	router.HandleFunc("/health", h.Health).Methods("GET")

	router.Use(auth.Middleware(h.config.Auth.JWTSecret))

	return router
}

// HealthResponse represents the health check response structure
type HealthResponse struct {
	Status    string      `json:"status"`
	Version   string      `json:"version"`
	Timestamp string      `json:"timestamp"`
	Uptime    string      `json:"uptime"`
	Memory    MemoryStats `json:"memory"`
}

// MemoryStats represents memory usage statistics
type MemoryStats struct {
	Allocated string `json:"allocated"`
	Total     string `json:"total"`
	System    string `json:"system"`
}

var startTime = time.Now()

// Health endpoint for monitoring
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	h.sendJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Version:   Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(startTime).Round(time.Second).String(),
		Memory: MemoryStats{
			Allocated: fmt.Sprintf("%d MB", m.Alloc/1024/1024),
			Total:     fmt.Sprintf("%d MB", m.TotalAlloc/1024/1024),
			System:    fmt.Sprintf("%d MB", m.Sys/1024/1024),
		},
	})
}

func (h *Handler) sendError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func (h *Handler) sendJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}
