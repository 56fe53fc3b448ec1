package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/webdisk/pkg/disk"
	"github.com/marmos91/webdisk/pkg/index"
	"github.com/marmos91/webdisk/pkg/store/blob"
	"github.com/marmos91/webdisk/pkg/store/blob/memory"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// brokenStore fails every write.
type brokenStore struct {
	blob.BlobStore
}

func (brokenStore) Write(context.Context, string, io.Reader) error {
	return errors.New("disk full")
}

type recordingHTTPMetrics struct {
	mu          sync.Mutex
	requests    map[string]int
	rateLimited int
}

func (r *recordingHTTPMetrics) RecordRequest(route, method string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests[fmt.Sprintf("%s %s %d", method, route, status)]++
}
func (r *recordingHTTPMetrics) RecordRequestStart()        {}
func (r *recordingHTTPMetrics) RecordRequestEnd()          {}
func (r *recordingHTTPMetrics) RecordBytes(string, int64) {}
func (r *recordingHTTPMetrics) RecordRateLimited() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rateLimited++
}

func newTestAdapter(t *testing.T, store blob.BlobStore, cfg HTTPConfig) *HTTPAdapter {
	t.Helper()
	if store == nil {
		store = memory.NewMemoryBlobStore()
	}
	d := disk.New(index.New(), store, disk.Options{})
	_, err := d.WarmUp(context.Background())
	require.NoError(t, err)

	a := New(cfg, nil)
	a.SetDisk(d)
	return a
}

func multipartBody(t *testing.T, field string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(field, "upload.bin")
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return body, w.FormDataContentType()
}

func do(a *HTTPAdapter, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, a *HTTPAdapter, content []byte) string {
	t.Helper()
	body, contentType := multipartBody(t, "file", content)
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := do(a, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.FileName)
	return resp.FileName
}

func put(t *testing.T, a *HTTPAdapter, name string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, "file", content)
	req := httptest.NewRequest(http.MethodPut, "/files/"+name, body)
	req.Header.Set("Content-Type", contentType)
	return do(a, req)
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestUploadThenDownload(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})
	name := upload(t, a, []byte("hello webdisk"))

	rec := do(a, httptest.NewRequest(http.MethodGet, "/files/"+name, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello webdisk", rec.Body.String())
	assert.Equal(t, "attachment; filename="+name, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "application/octet-stream", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestDownload_UnknownNameIs404(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})

	rec := do(a, httptest.NewRequest(http.MethodGet, "/files/missing", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decodeError(t, rec).Code)
}

func TestHead_AnswersFromIndex(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})
	require.Equal(t, http.StatusOK, put(t, a, "present", []byte("x")).Code)

	rec := do(a, httptest.NewRequest(http.MethodHead, "/files/present", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = do(a, httptest.NewRequest(http.MethodHead, "/files/absent", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPut_CreatesAndReplaces(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})

	rec := put(t, a, "report", []byte("v1"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Body.String())

	require.Equal(t, http.StatusOK, put(t, a, "report", []byte("v2")).Code)

	rec = do(a, httptest.NewRequest(http.MethodGet, "/files/report", nil))
	assert.Equal(t, "v2", rec.Body.String())

	rec = do(a, httptest.NewRequest(http.MethodGet, "/files/size", nil))
	assert.JSONEq(t, `{"size":1}`, rec.Body.String())
}

func TestPut_InvalidNameIs400(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})

	rec := put(t, a, "one.one", []byte("x"))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid filename", decodeError(t, rec).Description)
}

func TestPut_MissingFilePartIs400(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})

	body, contentType := multipartBody(t, "other", []byte("x"))
	req := httptest.NewRequest(http.MethodPut, "/files/report", body)
	req.Header.Set("Content-Type", contentType)

	rec := do(a, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpload_TooLargeIs413(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{MaxUploadBytes: 1024})

	body, contentType := multipartBody(t, "file", bytes.Repeat([]byte("x"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := do(a, req)
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	rec = do(a, httptest.NewRequest(http.MethodGet, "/files/size", nil))
	assert.JSONEq(t, `{"size":0}`, rec.Body.String())
}

func TestUpload_StorageFailureIs500(t *testing.T) {
	a := newTestAdapter(t, brokenStore{memory.NewMemoryBlobStore()}, HTTPConfig{})

	body, contentType := multipartBody(t, "file", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/files/upload", body)
	req.Header.Set("Content-Type", contentType)

	rec := do(a, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk full")

	rec = do(a, httptest.NewRequest(http.MethodGet, "/files/size", nil))
	assert.JSONEq(t, `{"size":0}`, rec.Body.String())
}

func TestDelete(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})
	name := upload(t, a, []byte("bye"))

	rec := do(a, httptest.NewRequest(http.MethodDelete, "/files/"+name, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(a, httptest.NewRequest(http.MethodDelete, "/files/"+name, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSearch(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})
	for _, name := range []string{"alpha", "alphabet", "beta"} {
		require.Equal(t, http.StatusOK, put(t, a, name, []byte(name)).Code)
	}

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantBody   string
	}{
		{"prefix", "?pattern=%5Ealpha", http.StatusOK, `{"results":["alpha","alphabet"]}`},
		{"no match", "?pattern=gamma", http.StatusOK, `{"results":[]}`},
		{"empty pattern matches all", "?pattern=", http.StatusOK, `{"results":["alpha","alphabet","beta"]}`},
		{"invalid pattern", "?pattern=%28", http.StatusBadRequest, ""},
		{"missing pattern", "", http.StatusBadRequest, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(a, httptest.NewRequest(http.MethodGet, "/files/search"+tt.query, nil))
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rec.Body.String())
			}
		})
	}
}

func TestRestricted(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})

	tests := []struct {
		name       string
		header     string
		wantStatus int
	}{
		{"no header", "", http.StatusForbidden},
		{"basic scheme", "Basic dXNlcjpwYXNz", http.StatusForbidden},
		{"empty bearer", "Bearer ", http.StatusForbidden},
		{"any bearer", "Bearer anything", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/files/restricted", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := do(a, req)
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, "Authorized", rec.Body.String())
			}
		})
	}
}

func TestStaticRoutesShadowNames(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})
	require.Equal(t, http.StatusOK, put(t, a, "size", []byte("blob named size")).Code)

	rec := do(a, httptest.NewRequest(http.MethodGet, "/files/size", nil))
	assert.JSONEq(t, `{"size":1}`, rec.Body.String())

	rec = do(a, httptest.NewRequest(http.MethodHead, "/files/size", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDPropagates(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{})

	req := httptest.NewRequest(http.MethodGet, "/files/size", nil)
	req.Header.Set(headerRequestID, "req-42")
	rec := do(a, req)
	assert.Equal(t, "req-42", rec.Header().Get(headerRequestID))
}

func TestRateLimit(t *testing.T) {
	m := &recordingHTTPMetrics{requests: make(map[string]int)}
	d := disk.New(index.New(), memory.NewMemoryBlobStore(), disk.Options{})
	a := New(HTTPConfig{RateLimit: RateLimitConfig{RequestsPerSecond: 1, Burst: 2}}, m)
	a.SetDisk(d)

	for i := 0; i < 2; i++ {
		rec := do(a, httptest.NewRequest(http.MethodGet, "/files/size", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := do(a, httptest.NewRequest(http.MethodGet, "/files/size", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.Equal(t, 1, m.rateLimited)
	assert.Equal(t, 2, m.requests["GET /files/size 200"])
	assert.Equal(t, 1, m.requests["GET /files/size 429"])
}

func TestServeAndStop(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{Port: -1, ShutdownTimeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer addrCancel()
	addr, err := a.Addr(addrCtx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + addr.String() + "/files/size")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"size":0}`, string(body))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}

	assert.NoError(t, a.Stop(context.Background()))
}

func TestServe_ReturnsAfterDirectStop(t *testing.T) {
	a := newTestAdapter(t, nil, HTTPConfig{Port: -1, ShutdownTimeout: time.Second})

	// A context that is never cancelled: only Stop can end Serve
	done := make(chan error, 1)
	go func() { done <- a.Serve(context.Background()) }()

	addrCtx, addrCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer addrCancel()
	_, err := a.Addr(addrCtx)
	require.NoError(t, err)

	require.NoError(t, a.Stop(context.Background()))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after Stop")
	}
}

func TestServe_WithoutDiskFails(t *testing.T) {
	a := New(HTTPConfig{Port: -1}, nil)
	assert.Error(t, a.Serve(context.Background()))
}

func TestNew_InvalidConfigPanics(t *testing.T) {
	assert.Panics(t, func() { New(HTTPConfig{MaxUploadBytes: -1}, nil) })
}
