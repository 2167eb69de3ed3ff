package e2e

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"visiond/internal/httpapi"
	"visiond/internal/manifest"
	"visiond/internal/provision"
	"visiond/internal/session"
)

// newAssetOrigin serves a small fake model package over HTTP.
// Files map name -> content.
func newAssetOrigin(t *testing.T, files map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		body, ok := files[name]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
		if r.Method == http.MethodHead {
			return
		}
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

// fakeAdapter is a scripted runtime for end-to-end flows.
type fakeAdapter struct {
	tokens []string
	genErr error
	block  chan struct{} // when set, Generate waits for close or ctx
}

type fakeSession struct{ a *fakeAdapter }

func (a *fakeAdapter) Start(modelDir string, params session.InferParams) (session.InferSession, error) {
	return &fakeSession{a: a}, nil
}

func (s *fakeSession) Generate(ctx context.Context, prompt string, image []byte, onToken func(string) error) (session.FinalResult, error) {
	var sb strings.Builder
	for _, tok := range s.a.tokens {
		if err := ctx.Err(); err != nil {
			return session.FinalResult{Content: sb.String()}, err
		}
		if err := onToken(tok); err != nil {
			return session.FinalResult{Content: sb.String()}, err
		}
		sb.WriteString(tok)
	}
	if s.a.block != nil {
		select {
		case <-s.a.block:
		case <-ctx.Done():
			return session.FinalResult{Content: sb.String()}, ctx.Err()
		}
	}
	if s.a.genErr != nil {
		return session.FinalResult{Content: sb.String()}, s.a.genErr
	}
	return session.FinalResult{Content: sb.String(), FinishReason: "stop"}, nil
}

func (s *fakeSession) Close() error { return nil }

// newDaemon wires a full stack: manifest against the origin, real provisioner,
// the given adapter, and the HTTP mux served by httptest.
func newDaemon(t *testing.T, origin *httptest.Server, files map[string]string, adapter session.InferenceAdapter) (*httptest.Server, *session.Controller) {
	t.Helper()
	root := t.TempDir()
	var urls []string
	for name := range files {
		urls = append(urls, origin.URL+"/pkg/"+name)
	}
	// Marker file last so a fully-provisioned root implies all files landed.
	for i, u := range urls {
		if filepath.Base(u) == manifest.ReadyMarker && i != len(urls)-1 {
			urls[i], urls[len(urls)-1] = urls[len(urls)-1], urls[i]
		}
	}
	man, err := manifest.New(root, strings.Join(urls, "\n"))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}
	ctl := session.NewController(session.Config{
		Manifest:    man,
		Provisioner: provision.New(provision.Config{}),
		Adapter:     adapter,
	})
	srv := httptest.NewServer(httpapi.NewMux(ctl))
	t.Cleanup(srv.Close)
	return srv, ctl
}
