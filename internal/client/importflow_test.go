package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type spyServer struct {
	*httptest.Server
	requests int64
}

func (s *spyServer) requestCount() int64 {
	return atomic.LoadInt64(&s.requests)
}

func newSpyServer(t *testing.T, handler http.HandlerFunc) *spyServer {
	t.Helper()
	spy := &spyServer{}
	spy.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&spy.requests, 1)
		handler(w, r)
	}))
	t.Cleanup(spy.Close)
	return spy
}

func newTestFlow(t *testing.T, handler http.HandlerFunc) (*ImportFlow, *spyServer) {
	t.Helper()
	spy := newSpyServer(t, handler)
	session := NewSession()
	session.SetToken("test-token")
	flow := NewImportFlow(New(spy.URL, session), "64f000000000000000000001")
	return flow, spy
}

func previewHandler(t *testing.T, preview ImportPreview) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/imports") && r.Method == http.MethodPost:
			json.NewEncoder(w).Encode(map[string]interface{}{
				"import_id": "imp-123",
				"status":    "preview",
				"preview":   preview,
			})
		case strings.HasSuffix(r.URL.Path, "/confirm"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"message":           "Import completed",
				"created_positions": preview.ValidRows,
			})
		default:
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestSelectFileRejectsNonCSVWithoutRequest(t *testing.T) {
	flow, spy := newTestFlow(t, func(w http.ResponseWriter, r *http.Request) {})

	err := flow.SelectFile("holdings.xlsx", []byte("data"))

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "File must be a CSV", validationErr.Message)
	assert.Equal(t, StateIdle, flow.State())
	assert.EqualValues(t, 0, spy.requestCount())
}

func TestSelectFileAcceptsUppercaseExtension(t *testing.T) {
	flow, spy := newTestFlow(t, func(w http.ResponseWriter, r *http.Request) {})

	require.NoError(t, flow.SelectFile("HOLDINGS.CSV", []byte("symbol\nAAPL")))
	assert.Equal(t, StateFileSelected, flow.State())
	assert.EqualValues(t, 0, spy.requestCount())
}

func TestSelectFileRejectsOversizeWithoutRequest(t *testing.T) {
	flow, spy := newTestFlow(t, func(w http.ResponseWriter, r *http.Request) {})

	big := make([]byte, MaxFileSize+1)
	err := flow.SelectFile("holdings.csv", big)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "File too large. Maximum size is 10MB", validationErr.Message)
	assert.EqualValues(t, 0, spy.requestCount())
}

func TestUploadPreviewConfirmHappyPath(t *testing.T) {
	preview := ImportPreview{
		TotalRows: 5,
		ValidRows: 3,
		ErrorRows: 2,
		ColumnMapping: map[string]int{
			"symbol":   0,
			"quantity": 1,
		},
	}
	flow, spy := newTestFlow(t, previewHandler(t, preview))

	require.NoError(t, flow.SelectFile("holdings.csv", []byte("symbol,quantity\nAAPL,10")))
	require.NoError(t, flow.Upload())

	assert.Equal(t, StatePreviewed, flow.State())
	require.NotNil(t, flow.Preview())
	assert.Equal(t, "imp-123", flow.Preview().ImportID)
	assert.Equal(t, 3, flow.Preview().ValidRows)
	assert.True(t, flow.CanConfirm())
	assert.Equal(t, "Import 3 Positions", flow.ConfirmLabel())

	require.NoError(t, flow.Confirm())
	assert.Equal(t, StateCompleted, flow.State())
	assert.Equal(t, 3, flow.CreatedCount())
	assert.EqualValues(t, 2, spy.requestCount())
}

func TestConfirmRejectedLocallyWhenNoValidRows(t *testing.T) {
	preview := ImportPreview{TotalRows: 2, ValidRows: 0, ErrorRows: 2}
	flow, spy := newTestFlow(t, previewHandler(t, preview))

	require.NoError(t, flow.SelectFile("holdings.csv", []byte("symbol\nBAD")))
	require.NoError(t, flow.Upload())
	require.Equal(t, StatePreviewed, flow.State())
	assert.False(t, flow.CanConfirm())

	uploads := spy.requestCount()
	err := flow.Confirm()

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, StatePreviewed, flow.State())
	assert.Equal(t, uploads, spy.requestCount(), "confirm with no valid rows must not hit the backend")
}

func TestConfirmOnConsumedImportFailsTerminally(t *testing.T) {
	preview := ImportPreview{TotalRows: 1, ValidRows: 1}
	flow, _ := newTestFlow(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/imports"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"import_id": "imp-123",
				"status":    "preview",
				"preview":   preview,
			})
		case strings.HasSuffix(r.URL.Path, "/confirm"):
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]string{"error": "Import has already been confirmed"})
		}
	})

	require.NoError(t, flow.SelectFile("holdings.csv", []byte("symbol\nAAPL")))
	require.NoError(t, flow.Upload())

	err := flow.Confirm()
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusConflict, reqErr.StatusCode)
	assert.Equal(t, "Import has already been confirmed", reqErr.Message)
	assert.Equal(t, StateFailed, flow.State())
}

func TestConfirmServerErrorReturnsToPreviewed(t *testing.T) {
	preview := ImportPreview{TotalRows: 1, ValidRows: 1}
	flow, _ := newTestFlow(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/imports"):
			json.NewEncoder(w).Encode(map[string]interface{}{
				"import_id": "imp-123",
				"status":    "preview",
				"preview":   preview,
			})
		case strings.HasSuffix(r.URL.Path, "/confirm"):
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(map[string]string{"error": "Internal server error"})
		}
	})

	require.NoError(t, flow.SelectFile("holdings.csv", []byte("symbol\nAAPL")))
	require.NoError(t, flow.Upload())

	require.Error(t, flow.Confirm())
	assert.Equal(t, StatePreviewed, flow.State(), "retryable failure keeps the import usable")
	assert.True(t, flow.CanConfirm())
}

func TestUploadFailureReturnsToFileSelected(t *testing.T) {
	flow, _ := newTestFlow(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "File must be a CSV"})
	})

	require.NoError(t, flow.SelectFile("holdings.csv", []byte("not,really,csv")))

	err := flow.Upload()
	var reqErr *RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, "File must be a CSV", reqErr.Message, "server message is surfaced verbatim")
	assert.Equal(t, StateFileSelected, flow.State())
}

func TestBackDiscardsPreviewWithoutRequest(t *testing.T) {
	preview := ImportPreview{TotalRows: 1, ValidRows: 1}
	flow, spy := newTestFlow(t, previewHandler(t, preview))

	require.NoError(t, flow.SelectFile("holdings.csv", []byte("symbol\nAAPL")))
	require.NoError(t, flow.Upload())
	uploads := spy.requestCount()

	require.NoError(t, flow.Back())
	assert.Equal(t, StateIdle, flow.State())
	assert.Nil(t, flow.Preview())
	assert.Equal(t, uploads, spy.requestCount(), "back is purely client-side")
}

func TestCancelFromFileSelected(t *testing.T) {
	flow, spy := newTestFlow(t, func(w http.ResponseWriter, r *http.Request) {})

	require.NoError(t, flow.SelectFile("holdings.csv", []byte("symbol\nAAPL")))
	require.NoError(t, flow.Cancel())
	assert.Equal(t, StateCancelled, flow.State())
	assert.EqualValues(t, 0, spy.requestCount())

	// Terminal: no further transitions.
	require.Error(t, flow.SelectFile("again.csv", []byte("symbol\nMSFT")))
	assert.Equal(t, StateCancelled, flow.State())
}

func TestUnauthorizedResponseExpiresSession(t *testing.T) {
	spy := newSpyServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"error": "Invalid token"})
	})

	session := NewSession()
	session.SetToken("stale-token")
	expired := 0
	session.OnExpired = func() { expired++ }

	c := New(spy.URL, session)
	_, err := c.ConfirmImport("imp-123")
	require.Error(t, err)
	_, err = c.ConfirmImport("imp-123")
	require.Error(t, err)

	assert.False(t, session.Authenticated())
	assert.Equal(t, 1, expired, "expiry handler fires once")
}

func TestPreviewMappingLabels(t *testing.T) {
	preview := ImportPreview{
		ColumnMapping: map[string]int{
			"quantity": 1,
			"symbol":   0,
			"notes":    3,
		},
	}

	assert.Equal(t, []string{
		"symbol: column 1",
		"quantity: column 2",
		"notes: column 4",
	}, preview.MappingLabels())
}
