package visionctl

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"visiond/pkg/types"
)

// Client talks to a running visiond over HTTP.
type Client struct {
	base string
	http *http.Client
	out  io.Writer
}

// NewClient builds a client for the daemon at base (e.g. http://127.0.0.1:8080).
func NewClient(base string, out io.Writer) *Client {
	if out == nil {
		out = os.Stdout
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		http: &http.Client{Timeout: 0},
		out:  out,
	}
}

// Status fetches and pretty-prints /status.
func (c *Client) Status(ctx context.Context) error {
	var st types.StatusResponse
	if err := c.getJSON(ctx, "/status", &st); err != nil {
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

// Assets fetches and pretty-prints /assets.
func (c *Client) Assets(ctx context.Context) error {
	var as types.AssetsResponse
	if err := c.getJSON(ctx, "/assets", &as); err != nil {
		return err
	}
	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(as)
}

// Cancel asks the daemon to stop the in-flight run.
func (c *Client) Cancel(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/cancel", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("cancel: unexpected status %s", resp.Status)
	}
	fmt.Fprintln(c.out, "cancelling")
	return nil
}

// Provision streams /provision progress lines to the output.
func (c *Client) Provision(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/provision", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return c.renderStream(resp.Body, false)
}

// Generate posts a generation request and streams deltas to the output.
func (c *Client) Generate(ctx context.Context, req types.GenerateRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/generate", bytes.NewReader(body))
	if err != nil {
		return err
	}
	hreq.Header.Set("Content-Type", "application/json")
	resp, err := c.http.Do(hreq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return c.renderStream(resp.Body, true)
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func decodeAPIError(resp *http.Response) error {
	var apiErr types.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&apiErr); err == nil && apiErr.Error != "" {
		return fmt.Errorf("%s (status %d)", apiErr.Error, resp.StatusCode)
	}
	return fmt.Errorf("unexpected status %s", resp.Status)
}

// renderStream consumes NDJSON lines. Deltas are written raw so tokens
// appear as they arrive; progress and state lines go to one status line each.
func (c *Client) renderStream(r io.Reader, raw bool) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var wroteDelta bool
	for sc.Scan() {
		line := sc.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var sl types.StreamLine
		if err := json.Unmarshal(line, &sl); err != nil {
			return fmt.Errorf("malformed stream line: %w", err)
		}
		switch {
		case sl.Done:
			if wroteDelta {
				fmt.Fprintln(c.out)
			}
			if sl.Error != "" {
				return fmt.Errorf("run ended in %s: %s", sl.State, sl.Error)
			}
			fmt.Fprintf(c.out, "[%s]\n", sl.State)
		case sl.Delta != "":
			if raw {
				fmt.Fprint(c.out, sl.Delta)
				wroteDelta = true
			}
		case sl.File != "":
			c.renderProgress(sl)
		case sl.State != "":
			fmt.Fprintf(c.out, "[%s]\n", sl.State)
		}
	}
	return sc.Err()
}

func (c *Client) renderProgress(sl types.StreamLine) {
	pct := "?"
	if sl.TotalPercent != nil && *sl.TotalPercent >= 0 {
		pct = fmt.Sprintf("%.1f%%", *sl.TotalPercent)
	}
	fmt.Fprintf(c.out, "%s  %-12s total %s\n", sl.File, sl.FileStatus, pct)
}
