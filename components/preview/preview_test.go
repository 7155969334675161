package preview

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goliatone/go-rentadmin/pkg/media"
)

func writeFile(t *testing.T, name, body string) media.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return media.File{Path: path, Name: name, Size: int64(len(body))}
}

func TestIssue_ServesUntilRevoked(t *testing.T) {
	c := New()
	server := httptest.NewServer(c.Handler())
	defer server.Close()
	c.SetBaseURL(server.URL)

	u, err := c.Issue(writeFile(t, "car.txt", "hello"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasPrefix(u, server.URL+"/previews/") {
		t.Fatalf("unexpected url %q", u)
	}

	resp, err := http.Get(u)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "hello" {
		t.Fatalf("unexpected response %d %q", resp.StatusCode, body)
	}

	c.Revoke(u)
	resp, err = http.Get(u)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 after revoke, got %d", resp.StatusCode)
	}
	if c.Active() != 0 {
		t.Fatalf("expected no live urls, got %d", c.Active())
	}
}

func TestIssue_RequiresBaseURL(t *testing.T) {
	if _, err := New().Issue(media.File{Name: "x"}); !errors.Is(err, ErrNoBaseURL) {
		t.Fatalf("expected ErrNoBaseURL, got %v", err)
	}
}

func TestMetricsRoute(t *testing.T) {
	c := New(WithBaseURL("http://preview.test"))
	if _, err := c.Issue(media.File{Name: "a.jpg"}); err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rentadmin_preview_active_urls 1") {
		t.Fatalf("active gauge missing:\n%s", rec.Body.String())
	}
}

func TestManagerIntegration(t *testing.T) {
	c := New(WithBaseURL("http://preview.test"))
	m := media.NewManager(c)
	if err := m.Select(media.SlotPhotos, []media.File{{Name: "a.jpg", Size: 1}, {Name: "b.jpg", Size: 1}}); err != nil {
		t.Fatalf("select: %v", err)
	}
	if c.Active() != 2 {
		t.Fatalf("expected 2 live urls, got %d", c.Active())
	}
	_ = m.Close()
	if c.Active() != 0 {
		t.Fatalf("expected urls revoked on close, got %d", c.Active())
	}
}

func TestStart_ServesOnListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := New()
	stop, err := c.Start(ctx, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer stop(context.Background())

	u, err := c.Issue(writeFile(t, "v.txt", "video"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	resp, err := http.Get(u)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestAccessKey_RequiredOnEveryRoute(t *testing.T) {
	c := New(WithAccessKey("s3cret"))
	server := httptest.NewServer(c.Handler())
	defer server.Close()
	c.SetBaseURL(server.URL)

	u, err := c.Issue(writeFile(t, "car.txt", "hello"))
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !strings.HasSuffix(u, "?key=s3cret") {
		t.Fatalf("issued url lacks key: %q", u)
	}

	for target, want := range map[string]int{
		u:                                        http.StatusOK,
		strings.TrimSuffix(u, "?key=s3cret"):     http.StatusForbidden,
		strings.Replace(u, "s3cret", "guess", 1): http.StatusForbidden,
		server.URL + "/metrics":                  http.StatusForbidden,
		server.URL + "/metrics?key=s3cret":       http.StatusOK,
	} {
		resp, err := http.Get(target)
		if err != nil {
			t.Fatalf("get %s: %v", target, err)
		}
		resp.Body.Close()
		if resp.StatusCode != want {
			t.Fatalf("%s: expected %d, got %d", target, want, resp.StatusCode)
		}
	}

	c.Revoke(u)
	if c.Active() != 0 {
		t.Fatalf("revoke should ignore the query, %d urls live", c.Active())
	}
}
