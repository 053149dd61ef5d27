package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sizemo/ocreceipt/internal/db"
	"github.com/sizemo/ocreceipt/internal/models"
)

// fakeStore records ListMerchants calls; the other Store methods are
// unused by the handlers under test.
type fakeStore struct {
	merchants    []string
	merchantsErr error
	gotPrefix    string
	gotLimit     int
}

func (f *fakeStore) CreateJob(context.Context, *models.UploadJob) error { return nil }
func (f *fakeStore) GetJob(context.Context, uuid.UUID) (*models.UploadJob, error) {
	return nil, errors.New("not found")
}
func (f *fakeStore) GetReceipt(context.Context, uuid.UUID) (*models.Receipt, error) {
	return nil, errors.New("not found")
}
func (f *fakeStore) ListReceipts(context.Context, db.ReceiptFilter) ([]models.Receipt, error) {
	return nil, nil
}
func (f *fakeStore) UpdateReceipt(context.Context, uuid.UUID, db.ReceiptUpdate) (*models.Receipt, error) {
	return nil, errors.New("not found")
}
func (f *fakeStore) SetReceiptReview(context.Context, uuid.UUID, bool) (*models.Receipt, error) {
	return nil, errors.New("not found")
}
func (f *fakeStore) DeleteReceipt(context.Context, uuid.UUID) error { return nil }
func (f *fakeStore) GetReceiptImage(context.Context, uuid.UUID) (*models.ReceiptImage, error) {
	return nil, errors.New("not found")
}

func (f *fakeStore) ListMerchants(_ context.Context, prefix string, limit int) ([]string, error) {
	f.gotPrefix = prefix
	f.gotLimit = limit
	return f.merchants, f.merchantsErr
}

func TestGetMerchants(t *testing.T) {
	store := &fakeStore{merchants: []string{"Corner Deli", "Walmart"}}
	h := NewHandler(&models.Config{}, store, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/merchants?query=w&limit=50", nil)
	rec := httptest.NewRecorder()
	h.GetMerchants(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "w", store.gotPrefix)
	require.Equal(t, 50, store.gotLimit)

	var resp MerchantsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, []string{"Corner Deli", "Walmart"}, resp.Merchants)
}

func TestGetMerchantsEmptyListIsNotNull(t *testing.T) {
	h := NewHandler(&models.Config{}, &fakeStore{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/merchants", nil)
	rec := httptest.NewRecorder()
	h.GetMerchants(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"merchants":[]}`, rec.Body.String())
}

func TestGetMerchantsInvalidLimit(t *testing.T) {
	h := NewHandler(&models.Config{}, &fakeStore{}, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/merchants?limit=abc", nil)
	rec := httptest.NewRecorder()
	h.GetMerchants(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetMerchantsStoreError(t *testing.T) {
	store := &fakeStore{merchantsErr: errors.New("connection lost")}
	h := NewHandler(&models.Config{}, store, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/merchants", nil)
	rec := httptest.NewRecorder()
	h.GetMerchants(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
