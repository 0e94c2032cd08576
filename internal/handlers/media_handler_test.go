package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	models "github.com/looking-sharp/Media-Management-Microservice/internal/media"
	service "github.com/looking-sharp/Media-Management-Microservice/internal/services"
	"github.com/looking-sharp/Media-Management-Microservice/internal/utils"
)

type memRepo struct {
	records map[string]*models.Media
}

func (r *memRepo) Insert(ctx context.Context, m *models.Media) error {
	r.records[m.ShortID] = m
	return nil
}

func (r *memRepo) ShortIDExists(ctx context.Context, shortID string) (bool, error) {
	_, ok := r.records[shortID]
	return ok, nil
}

func (r *memRepo) GetByShortID(ctx context.Context, shortID string) (*models.Media, error) {
	m, ok := r.records[shortID]
	if !ok {
		return nil, utils.ErrNotFound
	}
	return m, nil
}

func (r *memRepo) DeleteByShortID(ctx context.Context, shortID string) error {
	delete(r.records, shortID)
	return nil
}

type memStore struct {
	objects map[string][]byte
}

func (s *memStore) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	s.objects[key] = data
	return "https://backend.test/" + key, nil
}

func (s *memStore) Delete(ctx context.Context, key string) error {
	delete(s.objects, key)
	return nil
}

func (s *memStore) PresignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	return "https://signed.test/" + key, nil
}

type memFetcher struct {
	store *memStore
	calls int
}

func (f *memFetcher) Get(ctx context.Context, url string) (*http.Response, error) {
	f.calls++
	rec := httptest.NewRecorder()
	rec.Header().Set("Content-Type", "application/octet-stream")
	key := url[len("https://backend.test/"):]
	rec.Write(f.store.objects[key])
	return rec.Result(), nil
}

func newTestApp(t *testing.T) (*fiber.App, *memRepo, *memStore) {
	t.Helper()
	repo := &memRepo{records: map[string]*models.Media{}}
	store := &memStore{objects: map[string][]byte{}}
	fetch := &memFetcher{store: store}
	svc := service.NewMediaService(repo, store, fetch, nil, nil, zap.NewNop().Sugar(), service.Options{
		SizeCeiling: 2 << 20,
		PublicRead:  true,
	})
	h := NewHandler(svc, zap.NewNop().Sugar(), 50<<20)

	app := fiber.New()
	app.Post("/upload", h.Upload)
	app.Get("/access/:shortId", h.Access)
	app.Get("/access-link/:shortId", h.AccessLink)
	app.Post("/delete/:shortId", h.Delete)
	app.Get("/health", h.Health)
	return app, repo, store
}

func multipartUpload(t *testing.T, fileName, contentType string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func smallPNG(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, 12, 12))))
	return buf.Bytes()
}

func TestUploadAccessDeleteRoundTrip(t *testing.T) {
	app, repo, _ := newTestApp(t)

	resp, err := app.Test(multipartUpload(t, "pixel.png", "image/png", smallPNG(t)), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	data := env["data"].(map[string]any)
	shortID := data["short_id"].(string)
	assert.Len(t, shortID, 12)
	assert.Equal(t, "image/png", data["mime_type"])
	assert.Equal(t, "pixel.png", data["file_name"])
	assert.NotEmpty(t, data["id"])
	assert.Greater(t, data["size_bytes"].(float64), float64(0))

	// streamed retrieval
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/access/"+shortID, nil), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.NotEmpty(t, body)

	// link retrieval
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/access-link/"+shortID, nil), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	env = decodeEnvelope(t, resp)
	link := env["data"].(map[string]any)["link"].(string)
	assert.Contains(t, link, "https://backend.test/uploads/")

	// delete, then the short id is gone
	resp, err = app.Test(httptest.NewRequest(http.MethodPost, "/delete/"+shortID, nil), 5000)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, repo.records)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/access/"+shortID, nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestUploadRejectsFakeImage(t *testing.T) {
	app, repo, store := newTestApp(t)

	resp, err := app.Test(multipartUpload(t, "fake.png", "image/png", []byte("ten bytes!")), 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, repo.records, "rejected upload must write no metadata")
	assert.Empty(t, store.objects)
}

func TestUploadRequiresFile(t *testing.T) {
	app, _, _ := newTestApp(t)
	req := httptest.NewRequest(http.MethodPost, "/upload", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAccessUnknownShortID(t *testing.T) {
	app, _, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/access/zzzzzzzzzzzz", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteUnknownShortID(t *testing.T) {
	app, _, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/delete/zzzzzzzzzzzz", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	app, _, _ := newTestApp(t)
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
