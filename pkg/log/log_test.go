package log

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewTagsService(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: "debug", ServiceName: "crowd-playback", Writer: &buf})
	l.Debug().Msg("hello")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0][FieldService] != "crowd-playback" {
		t.Fatalf("service = %v", lines[0][FieldService])
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithViewer(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(Config{Writer: &buf}))
	ctx = WithViewer(ctx, "v-1")

	l := Ctx(ctx)
	l.Info().Msg("tagged")

	lines := decodeLines(t, &buf)
	if len(lines) != 1 || lines[0][FieldViewerID] != "v-1" {
		t.Fatalf("lines = %v", lines)
	}
}

func TestGinMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	r := gin.New()
	r.Use(GinMiddleware(New(Config{Writer: &buf})))
	r.GET("/viewers/:id", func(c *gin.Context) {
		c.Set(FieldViewerID, c.Param("id"))
		c.Status(http.StatusOK)
	})

	t.Run("generates request id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/viewers/abc", nil))

		if rec.Header().Get(headerRequestID) == "" {
			t.Fatal("missing request id header")
		}
		lines := decodeLines(t, &buf)
		if len(lines) != 1 {
			t.Fatalf("got %d lines", len(lines))
		}
		if lines[0][FieldViewerID] != "abc" {
			t.Fatalf("viewer_id = %v", lines[0][FieldViewerID])
		}
		if lines[0][FieldStatus] != float64(http.StatusOK) {
			t.Fatalf("status = %v", lines[0][FieldStatus])
		}
	})

	t.Run("keeps caller request id", func(t *testing.T) {
		buf.Reset()
		req := httptest.NewRequest(http.MethodGet, "/viewers/abc", nil)
		req.Header.Set(headerRequestID, "req-42")
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if got := rec.Header().Get(headerRequestID); got != "req-42" {
			t.Fatalf("header = %q", got)
		}
		lines := decodeLines(t, &buf)
		if len(lines) != 1 || lines[0][FieldRequestID] != "req-42" {
			t.Fatalf("lines = %v", lines)
		}
	})
}

func TestGinMiddlewareLevels(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	r := gin.New()
	r.Use(GinMiddleware(New(Config{Writer: &buf}), "/health"))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	if buf.Len() != 0 {
		t.Fatalf("quiet path logged: %s", buf.String())
	}

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/boom", nil))

	lines := decodeLines(t, &buf)
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	if lines[0]["level"] != "warn" || lines[1]["level"] != "error" {
		t.Fatalf("levels = %v, %v", lines[0]["level"], lines[1]["level"])
	}
	if lines[1][FieldRoute] != "/boom" {
		t.Fatalf("route = %v", lines[1][FieldRoute])
	}
}
