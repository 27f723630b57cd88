package server

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amankumarsingh77/slideshow-encoder/internal/config"
	"github.com/amankumarsingh77/slideshow-encoder/internal/models"
	"github.com/amankumarsingh77/slideshow-encoder/pkg/logger"
	"github.com/go-redis/redis/v8"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	ffmpeg := filepath.Join(t.TempDir(), "ffmpeg")
	script := "#!/bin/sh\necho run >> \"$(dirname \"$0\")/calls\"\nfor last; do :; done\nprintf 'mp4' > \"$last\"\n"
	if err := os.WriteFile(ffmpeg, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return &config.Config{
		Storage:   config.StorageConfig{OutputDir: t.TempDir(), TempDir: t.TempDir()},
		Slideshow: config.SlideshowConfig{TotalDuration: 600 * time.Second, JPEGQuality: 80, MaxWidth: 64, MaxHeight: 64},
		Fetcher:   config.FetcherConfig{Timeout: 5 * time.Second, MaxImageBytes: 1 << 20},
		Encoder:   config.EncoderConfig{FFmpegPath: ffmpeg, VideoCodec: "libx264", AudioCodec: "aac", AudioBitrate: "192k", PixelFormat: "yuv420p", Timeout: 10 * time.Second},
		Worker:    config.WorkerConfig{MaxConcurrentJobs: 1, ImageConcurrency: 2},
		Registry:  config.RegistryConfig{Backend: config.RegistryMemory, KeyPrefix: "slideshow:job:", TTL: time.Hour},
	}
}

// encodeCount reports how many times the fake ffmpeg of cfg has run.
func encodeCount(t *testing.T, cfg *config.Config) int {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(filepath.Dir(cfg.Encoder.FFmpegPath), "calls"))
	if os.IsNotExist(err) {
		return 0
	}
	if err != nil {
		t.Fatalf("read encode count: %v", err)
	}
	return strings.Count(string(data), "run\n")
}

func assetServer(t *testing.T) *httptest.Server {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(0, 0, color.Black)
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		t.Fatal(err)
	}
	mp3 := append([]byte("ID3\x03\x00\x00\x00\x00\x00\x00"), make([]byte, 64)...)

	mux := http.NewServeMux()
	mux.HandleFunc("/a.png", func(w http.ResponseWriter, r *http.Request) { w.Write(pngBuf.Bytes()) })
	mux.HandleFunc("/b.png", func(w http.ResponseWriter, r *http.Request) { w.Write(pngBuf.Bytes()) })
	mux.HandleFunc("/track.mp3", func(w http.ResponseWriter, r *http.Request) { w.Write(mp3) })
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newTestServer(t *testing.T, cfg *config.Config, redisClient *redis.Client) *Server {
	t.Helper()
	s := NewServer(cfg, redisClient, nil, logger.NewNopLogger())
	s.useMiddleware(s.echo)
	if err := s.MapHandlers(s.echo); err != nil {
		t.Fatalf("MapHandlers: %v", err)
	}
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.runner.Shutdown(ctx)
	})
	return s
}

func (s *Server) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndIndex(t *testing.T) {
	s := newTestServer(t, testConfig(t), nil)

	rec := s.do(http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"OK"`) {
		t.Fatalf("GET /health = %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("X-Request-Id") == "" {
		t.Error("missing request id header")
	}

	rec = s.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Running") {
		t.Fatalf("GET / = %d %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateEndToEnd(t *testing.T) {
	assets := assetServer(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	for _, backend := range []string{config.RegistryMemory, config.RegistryRedis} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Registry.Backend = backend
			s := newTestServer(t, cfg, client)

			body := `{"image_urls":["` + assets.URL + `/a.png","` + assets.URL + `/missing.png","` + assets.URL + `/b.png"],"audio_url":"` + assets.URL + `/track.mp3"}`
			rec := s.do(http.MethodPost, "/generate", body)
			if rec.Code != http.StatusAccepted {
				t.Fatalf("POST /generate = %d %s", rec.Code, rec.Body.String())
			}
			var res models.GenerateResult
			if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !strings.HasSuffix(res.VideoURL, "/videos/"+res.JobID+".mp4") {
				t.Fatalf("video_url = %s", res.VideoURL)
			}

			var status models.StatusResponse
			deadline := time.Now().Add(10 * time.Second)
			for {
				rec = s.do(http.MethodGet, "/status/"+res.JobID, "")
				if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
					t.Fatalf("decode status: %v", err)
				}
				if status.Status.IsTerminal() || time.Now().After(deadline) {
					break
				}
				time.Sleep(20 * time.Millisecond)
			}
			if !status.Ready {
				t.Fatalf("job not ready: %+v", status)
			}

			encodes := encodeCount(t, cfg)
			if encodes != 1 {
				t.Fatalf("encoder ran %d times, want 1", encodes)
			}
			first := s.do(http.MethodGet, "/videos/"+res.JobID+".mp4", "")
			if first.Code != http.StatusOK || first.Body.String() != "mp4" {
				t.Fatalf("GET video = %d %q", first.Code, first.Body.String())
			}
			second := s.do(http.MethodGet, "/videos/"+res.JobID+".mp4", "")
			if second.Code != http.StatusOK || !bytes.Equal(first.Body.Bytes(), second.Body.Bytes()) {
				t.Fatalf("second GET = %d %q, want identical body %q", second.Code, second.Body.String(), first.Body.String())
			}
			if got := encodeCount(t, cfg); got != encodes {
				t.Fatalf("serving the video re-ran the encoder: %d runs, want %d", got, encodes)
			}
		})
	}
}

func TestGenerateAudioUnreachable(t *testing.T) {
	assets := assetServer(t)
	s := newTestServer(t, testConfig(t), nil)

	body := `{"image_urls":["` + assets.URL + `/a.png"],"audio_url":"` + assets.URL + `/gone.mp3"}`
	rec := s.do(http.MethodPost, "/generate", body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("POST /generate = %d", rec.Code)
	}
	var res models.GenerateResult
	json.Unmarshal(rec.Body.Bytes(), &res)

	var status models.StatusResponse
	deadline := time.Now().Add(10 * time.Second)
	for !status.Status.IsTerminal() && time.Now().Before(deadline) {
		time.Sleep(20 * time.Millisecond)
		json.Unmarshal(s.do(http.MethodGet, "/status/"+res.JobID, "").Body.Bytes(), &status)
	}
	if !status.Failed || status.Ready || !strings.Contains(status.Reason, "404") {
		t.Fatalf("status = %+v, want failed with 404 reason", status)
	}
	if rec := s.do(http.MethodGet, "/videos/"+res.JobID+".mp4", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("GET video = %d, want 404", rec.Code)
	}
}

func TestMapHandlersRejectsMissingClients(t *testing.T) {
	cfg := testConfig(t)
	cfg.Registry.Backend = config.RegistryRedis
	s := NewServer(cfg, nil, nil, logger.NewNopLogger())
	if err := s.MapHandlers(s.echo); err == nil {
		t.Fatal("redis backend without client accepted")
	}

	cfg = testConfig(t)
	cfg.S3 = config.S3Config{Enabled: true, OutputBucket: "out"}
	s = NewServer(cfg, nil, nil, logger.NewNopLogger())
	if err := s.MapHandlers(s.echo); err == nil {
		t.Fatal("s3 publishing without client accepted")
	}
}

func TestCORSUsesConfiguredOrigins(t *testing.T) {
	tests := []struct {
		name    string
		origins []string
		origin  string
		want    string
	}{
		{"default allows any", nil, "https://anywhere.example", "*"},
		{"configured origin", []string{"https://app.example.org"}, "https://app.example.org", "https://app.example.org"},
		{"other origin refused", []string{"https://app.example.org"}, "https://evil.example", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Server.AllowedOrigins = tt.origins
			s := newTestServer(t, cfg, nil)

			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			s.echo.ServeHTTP(rec, req)
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.want {
				t.Fatalf("Access-Control-Allow-Origin = %q, want %q", got, tt.want)
			}
		})
	}
}
