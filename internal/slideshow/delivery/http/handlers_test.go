package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
	"github.com/amankumarsingh77/slideshow-encoder/internal/slideshow"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/logger"
	"github.com/labstack/echo/v4"
)

type stubUseCase struct {
	generateErr error
	input       *models.GenerateInput
	baseURL     string
	status      *models.StatusResponse
	videos      map[string]string
}

func (s *stubUseCase) Generate(ctx context.Context, input *models.GenerateInput, baseURL string) (*models.GenerateResult, error) {
	s.input, s.baseURL = input, baseURL
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	return &models.GenerateResult{
		Message:   "started",
		JobID:     "abc",
		VideoURL:  baseURL + "/videos/abc.mp4",
		StatusURL: baseURL + "/status/abc",
	}, nil
}

func (s *stubUseCase) GetStatus(ctx context.Context, jobID string) (*models.StatusResponse, error) {
	if s.status != nil {
		return s.status, nil
	}
	return &models.StatusResponse{Status: models.JobStatusUnknown}, nil
}

func (s *stubUseCase) VideoPath(ctx context.Context, jobID string) (string, error) {
	if p, ok := s.videos[jobID]; ok {
		return p, nil
	}
	return "", slideshow.ErrNotFound
}

func newTestServer(uc slideshow.UseCase, baseURL string) *echo.Echo {
	e := echo.New()
	cfg := &config.Config{Server: config.ServerConfig{BaseURL: baseURL}}
	MapSlideshowRoutes(e, NewSlideshowHandler(cfg, uc, logger.NewNopLogger()))
	return e
}

func do(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestIndex(t *testing.T) {
	rec := do(newTestServer(&stubUseCase{}, ""), http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || rec.Body.String() != indexText {
		t.Fatalf("GET / = %d %q", rec.Code, rec.Body.String())
	}
}

func TestGenerateAccepted(t *testing.T) {
	uc := &stubUseCase{}
	e := newTestServer(uc, "")
	rec := do(e, http.MethodPost, "/generate", `{"image_urls":["https://x/a.jpg","https://x/b.jpg"],"audio_url":"https://x/a.mp3"}`)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res models.GenerateResult
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.VideoURL != "http://example.com/videos/abc.mp4" {
		t.Errorf("video_url = %s", res.VideoURL)
	}
	if len(uc.input.ImageURLs) != 2 || uc.input.AudioURL != "https://x/a.mp3" {
		t.Errorf("bound input = %+v", uc.input)
	}
}

func TestGenerateUsesConfiguredBaseURL(t *testing.T) {
	uc := &stubUseCase{}
	do(newTestServer(uc, "https://videos.example.org/"), http.MethodPost, "/generate", `{"image_urls":["https://x/a.jpg"],"audio_url":"https://x/a.mp3"}`)
	if uc.baseURL != "https://videos.example.org" {
		t.Fatalf("base url = %q", uc.baseURL)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		ucErr    error
		wantCode int
	}{
		{"malformed json", `{"image_urls":`, nil, http.StatusBadRequest},
		{"image_urls not a list", `{"image_urls":"https://x/a.jpg","audio_url":"https://x/a.mp3"}`, nil, http.StatusBadRequest},
		{"validation", `{"image_urls":[],"audio_url":"https://x/a.mp3"}`, fmt.Errorf("%w: min", slideshow.ErrInvalidInput), http.StatusBadRequest},
		{"registry down", `{"image_urls":["https://x/a.jpg"],"audio_url":"https://x/a.mp3"}`, errors.New("redis: connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(newTestServer(&stubUseCase{generateErr: tt.ucErr}, ""), http.MethodPost, "/generate", tt.body)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body["error"] == "" {
				t.Fatalf("body = %s, want {\"error\": ...}", rec.Body.String())
			}
		})
	}
}

func TestGetStatusHandler(t *testing.T) {
	uc := &stubUseCase{status: &models.StatusResponse{Status: models.JobStatusFailed, Failed: true, Reason: "encode: exit 1"}}
	rec := do(newTestServer(uc, ""), http.MethodGet, "/status/abc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var got models.StatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Ready || !got.Failed || got.Reason != "encode: exit 1" {
		t.Fatalf("status body = %+v", got)
	}

	rec = do(newTestServer(&stubUseCase{}, ""), http.MethodGet, "/status/never-issued", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ready":false`) {
		t.Fatalf("unknown id = %d %s", rec.Code, rec.Body.String())
	}
}

func TestServeVideo(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abc.mp4")
	if err := os.WriteFile(path, []byte("0123456789"), 0o644); err != nil {
		t.Fatal(err)
	}
	e := newTestServer(&stubUseCase{videos: map[string]string{"abc": path}}, "")

	rec := do(e, http.MethodGet, "/videos/abc.mp4", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "0123456789" {
		t.Fatalf("GET video = %d %q", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); ct != "video/mp4" {
		t.Errorf("content type = %q", ct)
	}

	req := httptest.NewRequest(http.MethodGet, "/videos/abc.mp4", nil)
	req.Header.Set("Range", "bytes=2-4")
	ranged := httptest.NewRecorder()
	e.ServeHTTP(ranged, req)
	if ranged.Code != http.StatusPartialContent || ranged.Body.String() != "234" {
		t.Errorf("range = %d %q", ranged.Code, ranged.Body.String())
	}

	for _, target := range []string{"/videos/missing.mp4", "/videos/abc", "/videos/abc.mkv"} {
		if rec := do(e, http.MethodGet, target, ""); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404", target, rec.Code)
		}
	}
}
