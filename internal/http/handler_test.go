package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/proposals/internal/config"
	"github.com/nurpe/proposals/internal/excel"
	"github.com/nurpe/proposals/internal/http/middleware"
	"github.com/nurpe/proposals/internal/model"
	"github.com/nurpe/proposals/internal/pdf"
	"github.com/nurpe/proposals/internal/repository"
	"github.com/nurpe/proposals/internal/service"
	"github.com/nurpe/proposals/internal/templates"
)

const acmeBody = `{
	"clientName": "Acme",
	"services": ["Web Design"],
	"pricing": [{"id": "1", "name": "Design", "unitPrice": 100, "quantity": 2}],
	"startDate": "2025-01-01",
	"endDate": "2025-02-01",
	"totalAmount": 200
}`

type brokenRepo struct {
	repository.ProposalRepository
}

func (brokenRepo) List(context.Context) ([]model.Proposal, error) {
	return nil, errors.New("connection refused")
}

func (brokenRepo) Create(context.Context, model.ProposalInput) (model.Proposal, error) {
	return model.Proposal{}, errors.New("connection refused")
}

func newTestRouter(t *testing.T, repo repository.ProposalRepository) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	catalog, err := templates.Builtin()
	require.NoError(t, err)

	cfg := &config.Config{
		Environment: "test",
		HTTP:        config.HTTPConfig{CORSAllowedOrigins: []string{"*"}},
		Proposals:   config.ProposalsConfig{Currency: "$"},
	}
	pdfGenerator, err := pdf.NewGenerator("$")
	require.NoError(t, err)
	svc := service.NewProposalService(repo, pdfGenerator, excel.NewGenerator(), catalog, cfg, zerolog.Nop())
	handler := NewHandler(svc, zerolog.Nop())
	handler.now = func() time.Time { return time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC) }
	router := NewRouter(handler, cfg, zerolog.Nop(), prometheus.NewRegistry())
	gin.SetMode(gin.TestMode)
	return router
}

func do(router *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeProposal(t *testing.T, w *httptest.ResponseRecorder) model.Proposal {
	t.Helper()
	var proposal model.Proposal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &proposal))
	return proposal
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestHandler_CreateAndGet(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	w := do(router, http.MethodPost, "/api/proposals", acmeBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeProposal(t, w)
	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, "Acme", created.ClientName)
	assert.Equal(t, "", created.Notes)
	assert.False(t, created.CreatedAt.IsZero())

	w = do(router, http.MethodGet, "/api/proposals/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	fetched := decodeProposal(t, w)
	assert.Equal(t, created.ClientName, fetched.ClientName)
	assert.Equal(t, created.Pricing, fetched.Pricing)
	assert.True(t, created.CreatedAt.Equal(fetched.CreatedAt))

	var raw map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	for _, key := range []string{"id", "clientName", "services", "pricing", "startDate", "endDate", "notes", "totalAmount", "createdAt"} {
		assert.Contains(t, raw, key)
	}
}

func TestHandler_CreateIgnoresClientIdentity(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	body := strings.Replace(acmeBody, `"clientName"`, `"id": 99, "createdAt": "2001-01-01T00:00:00Z", "clientName"`, 1)
	w := do(router, http.MethodPost, "/api/proposals", body)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeProposal(t, w)
	assert.Equal(t, int64(1), created.ID)
	assert.NotEqual(t, 2001, created.CreatedAt.Year())
}

func TestHandler_CreateValidationFailure(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	body := `{"clientName": "", "services": [], "pricing": [{"id": "1", "name": "x", "unitPrice": -1, "quantity": 0}], "startDate": "2025-01-01", "endDate": "2025-02-01", "totalAmount": 0}`
	w := do(router, http.MethodPost, "/api/proposals", body)
	require.Equal(t, http.StatusBadRequest, w.Code)

	msg := errorBody(t, w)
	assert.Contains(t, msg, "Client name is required")
	assert.Contains(t, msg, "services")
	assert.Contains(t, msg, "Price cannot be negative")
	assert.Contains(t, msg, "Quantity must be at least 1")

	w = do(router, http.MethodGet, "/api/proposals", "")
	assert.Equal(t, "[]", w.Body.String())
}

func TestHandler_CreateMalformedJSON(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	w := do(router, http.MethodPost, "/api/proposals", `{"clientName":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodPost, "/api/proposals", `{"clientName": 12}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_StoreFaults(t *testing.T) {
	router := newTestRouter(t, brokenRepo{})

	w := do(router, http.MethodGet, "/api/proposals", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to get proposals", errorBody(t, w))

	w = do(router, http.MethodPost, "/api/proposals", acmeBody)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Failed to create proposal", errorBody(t, w))
}

func TestHandler_BadIDs(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	cases := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/proposals/abc", ""},
		{http.MethodPut, "/api/proposals/abc", acmeBody},
		{http.MethodDelete, "/api/proposals/1.5", ""},
		{http.MethodGet, "/api/proposals/abc/pdf", ""},
		{http.MethodGet, "/api/proposals/abc/xlsx", ""},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			w := do(router, tc.method, tc.path, tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, "Invalid proposal ID", errorBody(t, w))
		})
	}
}

func TestHandler_NotFound(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/proposals/7", ""},
		{http.MethodPut, "/api/proposals/7", acmeBody},
		{http.MethodDelete, "/api/proposals/7", ""},
		{http.MethodGet, "/api/proposals/7/pdf", ""},
	} {
		w := do(router, tc.method, tc.path, tc.body)
		assert.Equal(t, http.StatusNotFound, w.Code, tc.method+" "+tc.path)
		assert.Equal(t, "Proposal not found", errorBody(t, w))
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	w := do(router, http.MethodPost, "/api/proposals", acmeBody)
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeProposal(t, w)

	update := strings.Replace(acmeBody, `"Acme"`, `"Acme Corp"`, 1)
	w = do(router, http.MethodPut, "/api/proposals/1", update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decodeProposal(t, w)
	assert.Equal(t, created.ID, updated.ID)
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
	assert.Equal(t, "Acme Corp", updated.ClientName)

	w = do(router, http.MethodPut, "/api/proposals/1", `{"clientName": "Acme"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(router, http.MethodDelete, "/api/proposals/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(router, http.MethodDelete, "/api/proposals/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(router, http.MethodGet, "/api/proposals/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_ListScenario(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	for _, client := range []string{"Acme", "Globex", "Initech"} {
		body := strings.Replace(acmeBody, `"Acme"`, `"`+client+`"`, 1)
		w := do(router, http.MethodPost, "/api/proposals", body)
		require.Equal(t, http.StatusCreated, w.Code)
		time.Sleep(2 * time.Millisecond)
	}

	w := do(router, http.MethodGet, "/api/proposals", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list []model.Proposal
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Initech", "Globex", "Acme"}, []string{list[0].ClientName, list[1].ClientName, list[2].ClientName})

	w = do(router, http.MethodDelete, "/api/proposals/2", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(router, http.MethodGet, "/api/proposals", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list, 2)

	w = do(router, http.MethodGet, "/api/proposals/2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHandler_Exports(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/proposals", acmeBody).Code)

	w := do(router, http.MethodGet, "/api/proposals/1/pdf", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypePDF, w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="proposal-1-Acme.pdf"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = do(router, http.MethodGet, "/api/proposals/1/xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypeXLSX, w.Header().Get("Content-Type"))

	w = do(router, http.MethodGet, "/api/exports/proposals.xlsx", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="proposals-20250101.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestHandler_Templates(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	w := do(router, http.MethodGet, "/api/templates", "")
	require.Equal(t, http.StatusOK, w.Code)

	var list []model.ProposalTemplate
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 3)
	assert.Equal(t, "2025-01-08", list[0].StartDate)
}

func TestRouter_HealthMetricsAndRequestID(t *testing.T) {
	router := newTestRouter(t, repository.NewMemoryProposalRepository())

	w := do(router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(middleware.RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(middleware.RequestIDHeader))

	w = do(router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "proposals_http_requests_total")
}
