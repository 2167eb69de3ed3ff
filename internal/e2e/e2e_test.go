package e2e

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"visiond/internal/manifest"
	"visiond/pkg/types"
)

var pkgFiles = map[string]string{
	"genai_config.json":  `{"model":{"type":"phi3v"}}`,
	"model.onnx.data":    "0123456789abcdef",
	manifest.ReadyMarker: `{"tokenizer_class":"LlamaTokenizer"}`,
}

func writeTestImage(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "input.png")
	if err := os.WriteFile(p, []byte{0x89, 'P', 'N', 'G', 0, 1, 2, 3}, 0o644); err != nil {
		t.Fatalf("write image: %v", err)
	}
	return p
}

func postGenerate(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/generate", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	return resp
}

func decodeStream(t *testing.T, r io.Reader) []types.StreamLine {
	t.Helper()
	var lines []types.StreamLine
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var sl types.StreamLine
		if err := json.Unmarshal(sc.Bytes(), &sl); err != nil {
			t.Fatalf("bad stream line %q: %v", sc.Text(), err)
		}
		lines = append(lines, sl)
	}
	if err := sc.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}
	return lines
}

// TestE2E_GenerateProvisionsThenStreams drives the full path over HTTP: a cold
// daemon downloads the package from the origin, then tokenizes and streams.
func TestE2E_GenerateProvisionsThenStreams(t *testing.T) {
	origin := newAssetOrigin(t, pkgFiles)
	adapter := &fakeAdapter{tokens: []string{"a ", "red ", "fox"}}
	srv, ctl := newDaemon(t, origin, pkgFiles, adapter)

	img := writeTestImage(t)
	resp := postGenerate(t, srv.URL, fmt.Sprintf(`{"prompt":"describe","image_path":%q}`, img))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		t.Fatalf("status=%d body=%s", resp.StatusCode, b)
	}
	lines := decodeStream(t, resp.Body)
	if len(lines) == 0 {
		t.Fatalf("empty stream")
	}
	if lines[0].State != types.StateProvisioning {
		t.Fatalf("first state=%q", lines[0].State)
	}
	var sawProgress, sawDelta bool
	var content string
	for _, sl := range lines {
		if sl.File != "" {
			sawProgress = true
		}
		if sl.Delta != "" {
			sawDelta = true
		}
		if sl.Done {
			if sl.State != types.StateCompleted {
				t.Fatalf("terminal state=%q error=%q", sl.State, sl.Error)
			}
			content = sl.Content
		}
	}
	if !sawProgress || !sawDelta {
		t.Fatalf("sawProgress=%v sawDelta=%v", sawProgress, sawDelta)
	}
	if content != "a red fox" {
		t.Fatalf("content=%q", content)
	}

	// Package landed on disk and readiness flipped.
	if !ctl.Ready() {
		t.Fatalf("controller not ready after provisioning")
	}
	rresp, err := http.Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatalf("readyz: %v", err)
	}
	io.Copy(io.Discard, rresp.Body)
	rresp.Body.Close()
	if rresp.StatusCode != http.StatusOK {
		t.Fatalf("readyz=%d", rresp.StatusCode)
	}
}

// TestE2E_SecondRunSkipsDownloads verifies warm starts do not refetch assets.
func TestE2E_SecondRunSkipsDownloads(t *testing.T) {
	origin := newAssetOrigin(t, pkgFiles)
	adapter := &fakeAdapter{tokens: []string{"ok"}}
	srv, _ := newDaemon(t, origin, pkgFiles, adapter)
	img := writeTestImage(t)

	for run := 0; run < 2; run++ {
		resp := postGenerate(t, srv.URL, fmt.Sprintf(`{"prompt":"p","image_path":%q}`, img))
		lines := decodeStream(t, resp.Body)
		resp.Body.Close()
		last := lines[len(lines)-1]
		if !last.Done || last.State != types.StateCompleted {
			t.Fatalf("run %d terminal=%+v", run, last)
		}
		if run == 1 {
			for _, sl := range lines {
				if sl.FileStatus == "downloading" {
					t.Fatalf("second run re-downloaded %s", sl.File)
				}
			}
		}
	}
}

// TestE2E_Backpressure429 verifies the single-flight gate over HTTP.
func TestE2E_Backpressure429(t *testing.T) {
	origin := newAssetOrigin(t, pkgFiles)
	adapter := &fakeAdapter{block: make(chan struct{})}
	srv, ctl := newDaemon(t, origin, pkgFiles, adapter)
	img := writeTestImage(t)

	first := make(chan int, 1)
	go func() {
		resp := postGenerate(t, srv.URL, fmt.Sprintf(`{"prompt":"p","image_path":%q}`, img))
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		first <- resp.StatusCode
	}()

	// Wait for the run to be admitted before probing the gate.
	deadline := time.Now().Add(5 * time.Second)
	for ctl.Status().State == types.StateIdle {
		if time.Now().After(deadline) {
			t.Fatalf("first run never admitted")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp := postGenerate(t, srv.URL, fmt.Sprintf(`{"prompt":"p","image_path":%q}`, img))
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429 while busy, got %d", resp.StatusCode)
	}

	close(adapter.block)
	if got := <-first; got != http.StatusOK {
		t.Fatalf("first request status=%d", got)
	}
}

// TestE2E_CancelEndpoint stops an in-flight run and reports cancelled.
func TestE2E_CancelEndpoint(t *testing.T) {
	origin := newAssetOrigin(t, pkgFiles)
	adapter := &fakeAdapter{tokens: []string{"par"}, block: make(chan struct{})}
	srv, ctl := newDaemon(t, origin, pkgFiles, adapter)
	img := writeTestImage(t)

	type result struct {
		lines []types.StreamLine
	}
	done := make(chan result, 1)
	go func() {
		resp := postGenerate(t, srv.URL, fmt.Sprintf(`{"prompt":"p","image_path":%q}`, img))
		defer resp.Body.Close()
		done <- result{lines: decodeStream(t, resp.Body)}
	}()

	deadline := time.Now().Add(5 * time.Second)
	for ctl.Status().State != types.StateGenerating {
		if time.Now().After(deadline) {
			t.Fatalf("run never reached generating, state=%s", ctl.Status().State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	cresp, err := http.Post(srv.URL+"/cancel", "", nil)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	io.Copy(io.Discard, cresp.Body)
	cresp.Body.Close()
	if cresp.StatusCode != http.StatusAccepted {
		t.Fatalf("cancel status=%d", cresp.StatusCode)
	}

	res := <-done
	last := res.lines[len(res.lines)-1]
	if !last.Done || last.State != types.StateCancelled {
		t.Fatalf("terminal=%+v", last)
	}
}

// TestE2E_ProvisionEndpointAndStatus provisions without generating.
func TestE2E_ProvisionEndpointAndStatus(t *testing.T) {
	origin := newAssetOrigin(t, pkgFiles)
	adapter := &fakeAdapter{}
	srv, _ := newDaemon(t, origin, pkgFiles, adapter)

	presp, err := http.Post(srv.URL+"/provision", "", nil)
	if err != nil {
		t.Fatalf("provision: %v", err)
	}
	lines := decodeStream(t, presp.Body)
	presp.Body.Close()
	last := lines[len(lines)-1]
	if !last.Done || last.State != types.StateCompleted {
		t.Fatalf("terminal=%+v", last)
	}

	sresp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st types.StatusResponse
	if err := json.NewDecoder(sresp.Body).Decode(&st); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	sresp.Body.Close()
	if !st.Provisioned || st.RunsTotal != 1 {
		t.Fatalf("status=%+v", st)
	}

	aresp, err := http.Get(srv.URL + "/assets")
	if err != nil {
		t.Fatalf("assets: %v", err)
	}
	var as types.AssetsResponse
	if err := json.NewDecoder(aresp.Body).Decode(&as); err != nil {
		t.Fatalf("decode assets: %v", err)
	}
	aresp.Body.Close()
	if len(as.Assets) != len(pkgFiles) {
		t.Fatalf("assets len=%d want %d", len(as.Assets), len(pkgFiles))
	}
	for _, a := range as.Assets {
		if !a.Present || a.SizeBytes != int64(len(pkgFiles[a.Name])) {
			t.Fatalf("asset %+v", a)
		}
	}
}
