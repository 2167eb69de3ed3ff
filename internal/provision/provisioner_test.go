package provision

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"visiond/internal/manifest"
	"visiond/pkg/types"
)

// newOrigin serves the given files and counts GET requests per file.
func newOrigin(t *testing.T, files map[string][]byte, gets *atomic.Int64) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		body, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if r.Method == http.MethodGet && gets != nil {
			gets.Add(1)
		}
		w.Header().Set("Content-Length", itoa(len(body)))
		if r.Method == http.MethodHead {
			return
		}
		w.Write(body)
	}))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

func newManifest(t *testing.T, srvURL, dir string, names ...string) *manifest.Manifest {
	t.Helper()
	var b strings.Builder
	for _, n := range names {
		b.WriteString(srvURL + "/pkg/" + n + "\n")
	}
	m, err := manifest.New(dir, b.String())
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	return m
}

func TestEnsureDownloadsMissingAssets(t *testing.T) {
	files := map[string][]byte{
		"a.bin": make([]byte, 100),
		"b.bin": make([]byte, 300),
	}
	srv := newOrigin(t, files, nil)
	defer srv.Close()
	dir := t.TempDir()
	m := newManifest(t, srv.URL, dir, "a.bin", "b.bin")

	var updates []Progress
	p := New(Config{})
	if err := p.Ensure(context.Background(), m, func(pr Progress) { updates = append(updates, pr) }); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	for name, body := range files {
		fi, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if fi.Size() != int64(len(body)) {
			t.Fatalf("%s size=%d want %d", name, fi.Size(), len(body))
		}
	}
	if len(updates) == 0 {
		t.Fatalf("no progress updates")
	}
	last := updates[len(updates)-1]
	if last.Status != StatusCompleted {
		t.Fatalf("last status=%s", last.Status)
	}
	if got := last.TotalPercent(); got != 100 {
		t.Fatalf("aggregate percent=%v", got)
	}
	if last.TotalBytes != 400 || last.TotalExpected != 400 {
		t.Fatalf("aggregate bytes=%d/%d", last.TotalBytes, last.TotalExpected)
	}
}

func TestEnsureSkipsPresentAssets(t *testing.T) {
	files := map[string][]byte{"a.bin": []byte("abc")}
	var gets atomic.Int64
	srv := newOrigin(t, files, &gets)
	defer srv.Close()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), []byte("abc"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := newManifest(t, srv.URL, dir, "a.bin")

	var skipped bool
	p := New(Config{})
	if err := p.Ensure(context.Background(), m, func(pr Progress) {
		if pr.File == "a.bin" && pr.Status == StatusSkipped {
			skipped = true
		}
	}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !skipped {
		t.Fatalf("expected a skipped update")
	}
	if gets.Load() != 0 {
		t.Fatalf("expected zero GETs for present asset, got %d", gets.Load())
	}
}

func TestEnsureRedownloadsTruncatedFile(t *testing.T) {
	body := make([]byte, 64)
	files := map[string][]byte{"a.bin": body}
	srv := newOrigin(t, files, nil)
	defer srv.Close()
	dir := t.TempDir()
	// Leftover shorter than the probed size must be fetched again.
	if err := os.WriteFile(filepath.Join(dir, "a.bin"), body[:10], 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	m := newManifest(t, srv.URL, dir, "a.bin")

	p := New(Config{})
	if err := p.Ensure(context.Background(), m, nil); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	fi, err := os.Stat(filepath.Join(dir, "a.bin"))
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if fi.Size() != 64 {
		t.Fatalf("size=%d want 64", fi.Size())
	}
}

func TestEnsureProbeFailureIsNonFatal(t *testing.T) {
	body := []byte("payload")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			http.Error(w, "no heads here", http.StatusMethodNotAllowed)
			return
		}
		w.Write(body)
	}))
	defer srv.Close()
	dir := t.TempDir()
	m := newManifest(t, srv.URL, dir, "a.bin")

	var sawUnknown bool
	p := New(Config{})
	if err := p.Ensure(context.Background(), m, func(pr Progress) {
		if pr.TotalPercent() == types.PercentUnknown {
			sawUnknown = true
		}
	}); err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if !sawUnknown {
		t.Fatalf("expected unknown aggregate percent after failed probe")
	}
	fi, err := os.Stat(filepath.Join(dir, "a.bin"))
	if err != nil || fi.Size() != int64(len(body)) {
		t.Fatalf("stat: %v size=%v", err, fi)
	}
}

func TestEnsureFetchFailureAbortsRun(t *testing.T) {
	srv := newOrigin(t, map[string][]byte{"a.bin": []byte("x")}, nil)
	defer srv.Close()
	dir := t.TempDir()
	m := newManifest(t, srv.URL, dir, "a.bin", "missing.bin")

	p := New(Config{})
	err := p.Ensure(context.Background(), m, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !IsNetwork(err) {
		t.Fatalf("expected network error, got %v", err)
	}
}

func TestEnsureCancelledMidRun(t *testing.T) {
	files := map[string][]byte{
		"a.bin": []byte("first"),
		"b.bin": []byte("second"),
	}
	srv := newOrigin(t, files, nil)
	defer srv.Close()
	dir := t.TempDir()
	m := newManifest(t, srv.URL, dir, "a.bin", "b.bin")

	ctx, cancel := context.WithCancel(context.Background())
	p := New(Config{})
	err := p.Ensure(ctx, m, func(pr Progress) {
		// Cancel as soon as the first file lands.
		if pr.File == "a.bin" && pr.Status == StatusCompleted {
			cancel()
		}
	})
	if err == nil {
		t.Fatalf("expected cancellation error")
	}
	if !IsCancelled(err) {
		t.Fatalf("expected cancelled error, got %v", err)
	}
	// The completed file stays intact, the second one was never started.
	if fi, serr := os.Stat(filepath.Join(dir, "a.bin")); serr != nil || fi.Size() == 0 {
		t.Fatalf("first file missing after cancel: %v", serr)
	}
	if _, serr := os.Stat(filepath.Join(dir, "b.bin")); !os.IsNotExist(serr) {
		t.Fatalf("second file should not exist, stat err=%v", serr)
	}
}

func TestProgressPercentMath(t *testing.T) {
	p := Progress{FileBytes: 50, FileTotal: 200, TotalBytes: 100, TotalExpected: 400}
	if got := p.FilePercent(); got != 25 {
		t.Fatalf("file percent=%v", got)
	}
	if got := p.TotalPercent(); got != 25 {
		t.Fatalf("total percent=%v", got)
	}
	unknown := Progress{FileBytes: 10, FileTotal: -1, TotalBytes: 10, TotalExpected: -1}
	if unknown.FilePercent() != types.PercentUnknown || unknown.TotalPercent() != types.PercentUnknown {
		t.Fatalf("expected unknown percents")
	}
}
