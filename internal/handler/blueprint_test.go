package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"coipond/internal/catalog"
	"coipond/internal/domain"
	"coipond/internal/domain/models"
	bpModels "coipond/internal/domain/models/blueprint"
	bpSvc "coipond/internal/domain/services/blueprint"
	"coipond/internal/middleware"
	"coipond/internal/repository/memory"
	searchMem "coipond/internal/search/memory"
	authSvc "coipond/internal/service/auth"
	bpService "coipond/internal/service/blueprint"
	"coipond/internal/session"
	storageMem "coipond/internal/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubParser map[string]bpModels.Tree

func (p stubParser) Parse(ctx context.Context, text string) (bpModels.Tree, error) {
	if tree, ok := p[text]; ok {
		return tree, nil
	}
	return nil, fmt.Errorf("%w: unknown header", bpSvc.ErrParse)
}

type stubVerifier map[string]*models.Claims

func (v stubVerifier) VerifyToken(token string) (*models.Claims, error) {
	if c, ok := v[token]; ok {
		return c, nil
	}
	return nil, domain.ErrUnauthorized
}

func (v stubVerifier) Close() error { return nil }

func user(id, name string) *models.Claims {
	c := &models.Claims{Role: "authenticated", SessionID: "sess-" + id}
	c.Subject = id
	c.UserMetadata.DisplayName = name
	return c
}

// pngBytes is the smallest prefix http.DetectContentType recognises as PNG
var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

type testServer struct {
	handler http.Handler
	blobs   *storageMem.BlobStore
	store   *memory.Store
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cat, err := catalog.Load()
	require.NoError(t, err)

	parser := stubParser{
		"B1": &bpModels.Leaf{Name: "Smelter", GameVersion: "1.2.0"},
		"B2": &bpModels.Leaf{Name: "Smelter", GameVersion: "1.3.0"},
		"F1": &bpModels.Folder{Name: "Base",
			Blueprints: []*bpModels.Leaf{{Name: "a", GameVersion: "1.0.10"}},
			Folders: []*bpModels.Folder{{Name: "Sub",
				Blueprints: []*bpModels.Leaf{{Name: "c", GameVersion: "1.0.2"}}}},
		},
	}

	store := memory.NewStore()
	blobs := storageMem.New("https://cdn.test")
	authorizer := authSvc.NewOwnerBasedAuthorizer()
	tx := store.TransactionManager()

	blueprints := bpService.NewBlueprintService(store.Blueprints(), store.Ledgers(), parser, blobs, authorizer, logger)
	content := bpService.NewContentUpdater(store.Blueprints(), store.Ledgers(), tx, parser, authorizer, 3, logger)
	deletion := bpService.NewDeletionCoordinator(store.Blueprints(), store.Ledgers(), tx, blobs, authorizer, logger)
	searcher := bpService.NewIndexSelector(cat, searchMem.NewIndex(store.Blueprints(), cat), logger)

	registry := session.NewRegistry(time.Hour, 0, logger)
	limiter := middleware.NewRateLimiter(6000, 1000)
	t.Cleanup(func() {
		registry.Close()
		limiter.Close()
	})

	mux := http.NewServeMux()
	RegisterRoutes(mux,
		NewBlueprintHandler(blueprints, content, deletion, logger),
		NewSearchHandler(searcher, logger),
		limiter,
	)

	verifier := stubVerifier{"alice": user("alice", "Alice"), "bob": user("bob", "Bob")}
	var h http.Handler = mux
	h = middleware.Session(registry)(h)
	h = middleware.Auth(verifier, logger)(h)

	return &testServer{handler: h, blobs: blobs, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(t *testing.T, token, name, text string) *bpModels.Blueprint {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/blueprints", token, map[string]string{"name": name, "blueprint": text})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var bp bpModels.Blueprint
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bp))
	return &bp
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestCreateBlueprint(t *testing.T) {
	s := newTestServer(t)

	t.Run("json", func(t *testing.T) {
		bp := s.create(t, "alice", "Smelter line", "B1")
		assert.NotEmpty(t, bp.ID)
		assert.Equal(t, "alice", bp.OwnerID)
		assert.Equal(t, "Alice", bp.OwnerName)
		assert.Equal(t, bpModels.KindSingle, bp.Kind)
		assert.Equal(t, "1.2.0", bp.GameVersion)
		assert.Nil(t, bp.ScreenshotURL)
	})

	t.Run("anonymous is rejected", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/blueprints", "", map[string]string{"name": "x", "blueprint": "B1"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed blueprint", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/blueprints", "alice", map[string]string{"name": "x", "blueprint": "garbage"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("missing name", func(t *testing.T) {
		rec := s.do(t, http.MethodPost, "/api/blueprints", "alice", map[string]string{"blueprint": "B1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("multipart with screenshot", func(t *testing.T) {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.WriteField("name", "Folder build"))
		require.NoError(t, mw.WriteField("blueprint", "F1"))
		part, err := mw.CreatePart(textproto.MIMEHeader{
			"Content-Disposition": {`form-data; name="screenshot"; filename="shot.png"`},
			"Content-Type":        {"image/png"},
		})
		require.NoError(t, err)
		_, err = part.Write(pngBytes)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/api/blueprints", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer alice")
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		bp := decode[bpModels.Blueprint](t, rec)
		assert.Equal(t, bpModels.KindFolder, bp.Kind)
		assert.Equal(t, "1.0.10", bp.GameVersion)
		require.NotNil(t, bp.ScreenshotURL)

		obj, ok := s.blobs.Get(*bp.ScreenshotURL)
		require.True(t, ok)
		assert.Equal(t, "image/png", obj.ContentType)
	})
}

func TestGetBlueprint(t *testing.T) {
	s := newTestServer(t)
	bp := s.create(t, "alice", "Base", "F1")

	rec := s.do(t, http.MethodGet, "/api/blueprints/"+bp.ID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	detail := decode[bpModels.Detail](t, rec)
	assert.Equal(t, bp.ID, detail.Blueprint.ID)
	assert.Equal(t, int64(1), detail.Blueprint.Views)
	assert.Nil(t, detail.Versions)
	require.NotNil(t, detail.Tree)
	assert.Equal(t, "1.0.2", detail.Tree.Folders[0].MinGameVersion)

	rec = s.do(t, http.MethodGet, "/api/blueprints/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdateContent(t *testing.T) {
	s := newTestServer(t)
	bp := s.create(t, "alice", "Smelter", "B1")
	path := "/api/blueprints/" + bp.ID + "/content"

	t.Run("owner edit starts the history", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, path, "alice", map[string]string{"blueprint": "B2"})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		result := decode[bpSvc.ContentUpdateResult](t, rec)
		assert.False(t, result.NoOp)
		assert.Equal(t, "1.3.0", result.Blueprint.GameVersion)
		require.Len(t, result.Versions.Versions, 2)
		assert.Equal(t, "B2", result.Versions.Versions[0].BlueprintText)
		assert.Equal(t, "B1", result.Versions.Versions[1].BlueprintText)
	})

	t.Run("same text is a no-op", func(t *testing.T) {
		rec := s.do(t, http.MethodPut, path, "alice", map[string]string{"blueprint": "B2"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, decode[bpSvc.ContentUpdateResult](t, rec).NoOp)
	})

	tests := []struct {
		name       string
		token      string
		text       string
		wantStatus int
	}{
		{"anonymous", "", "B1", http.StatusUnauthorized},
		{"not the owner", "bob", "B1", http.StatusForbidden},
		{"malformed", "alice", "garbage", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPut, path, tt.token, map[string]string{"blueprint": tt.text})
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	t.Run("rejected edits leave the record alone", func(t *testing.T) {
		detail := decode[bpModels.Detail](t, s.do(t, http.MethodGet, "/api/blueprints/"+bp.ID, "", nil))
		assert.Equal(t, "B2", detail.Blueprint.BlueprintText)
		assert.Len(t, detail.Versions.Versions, 2)
	})
}

func TestUpdateMetadata(t *testing.T) {
	s := newTestServer(t)
	bp := s.create(t, "alice", "Smelter", "B1")
	path := "/api/blueprints/" + bp.ID

	rec := s.do(t, http.MethodPatch, path, "alice", map[string]string{"name": "  Renamed  ", "description": "**fast**"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[bpModels.Blueprint](t, rec)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, "**fast**", updated.Description)
	assert.Equal(t, "B1", updated.BlueprintText)

	rec = s.do(t, http.MethodPatch, path, "bob", map[string]string{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodPatch, path, "alice", map[string]string{"name": strings.Repeat("x", 51)})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReplaceScreenshot(t *testing.T) {
	s := newTestServer(t)
	bp := s.create(t, "alice", "Smelter", "B1")

	upload := func(token string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		part, err := mw.CreateFormFile("screenshot", "shot.png")
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPut, "/api/blueprints/"+bp.ID+"/screenshot", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		return rec
	}

	rec := upload("alice", pngBytes)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[bpModels.Blueprint](t, rec)
	require.NotNil(t, updated.ScreenshotURL)
	assert.Equal(t, 1, s.blobs.Len())

	assert.Equal(t, http.StatusForbidden, upload("bob", pngBytes).Code)
	assert.Equal(t, http.StatusBadRequest, upload("alice", []byte("plain text")).Code)
}

func TestDeleteBlueprint(t *testing.T) {
	s := newTestServer(t)
	bp := s.create(t, "alice", "Smelter", "B1")
	path := "/api/blueprints/" + bp.ID

	rec := s.do(t, http.MethodDelete, path, "bob", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodDelete, path, "alice", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodDelete, path, "alice", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordDownload(t *testing.T) {
	s := newTestServer(t)
	bp := s.create(t, "alice", "Smelter", "B1")

	for range 3 {
		rec := s.do(t, http.MethodPost, "/api/blueprints/"+bp.ID+"/downloads", "", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}

	stored, err := s.store.Blueprints().GetByID(context.Background(), bp.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stored.Downloads)

	rec := s.do(t, http.MethodPost, "/api/blueprints/missing/downloads", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewContent(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/blueprints/preview", "", map[string]string{"blueprint": "F1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	preview := decode[bpSvc.ContentPreview](t, rec)
	assert.Equal(t, bpModels.KindFolder, preview.Kind)
	assert.Equal(t, "1.0.10", preview.GameVersion)
	require.NotNil(t, preview.Tree)

	rec = s.do(t, http.MethodPost, "/api/blueprints/preview", "", map[string]string{"blueprint": "garbage"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{"validation", fmt.Errorf("%w: name is required", domain.ErrValidation), http.StatusBadRequest, "validation failed: name is required"},
		{"not found", fmt.Errorf("blueprint x: %w", domain.ErrNotFound), http.StatusNotFound, "blueprint x: not found"},
		{"forbidden", domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{"conflict", &domain.ConflictError{Message: "blueprint exists"}, http.StatusConflict, "blueprint exists"},
		{"retries exhausted", fmt.Errorf("gave up: %w", domain.ErrConcurrentModification), http.StatusConflict, "could not update blueprint, please try again"},
		{"external", fmt.Errorf("%w: gcs down", domain.ErrExternalService), http.StatusBadGateway, "upstream service unavailable"},
		{"rate limited", domain.ErrRateLimited, http.StatusTooManyRequests, "rate limited"},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var problem map[string]interface{}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &problem))
			assert.Equal(t, tt.wantDetail, problem["detail"])
			assert.Equal(t, float64(tt.wantStatus), problem["status"])
		})
	}
}
