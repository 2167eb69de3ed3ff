package provision

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"visiond/internal/common/fsutil"
	"visiond/internal/manifest"
)

const (
	// progressInterval bounds callback rate: at most one update per file per
	// this many transferred bytes, plus one on completion.
	progressInterval = 256 * 1024

	chunkSize = 64 * 1024

	probeTimeout = 10 * time.Second
)

// Config holds construction parameters for a Provisioner.
type Config struct {
	// Client used for HEAD probes and GET fetches. Timeout should be zero;
	// cancellation and deadlines come from the caller's context.
	Client *http.Client
	Logger zerolog.Logger
}

// Provisioner ensures all manifest assets exist under the local root.
type Provisioner struct {
	client *http.Client
	logger zerolog.Logger
}

func New(cfg Config) *Provisioner {
	cli := cfg.Client
	if cli == nil {
		cli = &http.Client{Timeout: 0}
	}
	return &Provisioner{client: cli, logger: cfg.Logger}
}

// fileState tracks one asset during a run. All mutation happens on the
// provisioning goroutine; the state is discarded when the run ends.
type fileState struct {
	desc   manifest.Descriptor
	status Status
	bytes  int64
	total  int64 // -1 unknown
}

// Ensure makes every manifest asset present under the local root, streaming
// coalesced progress to fn (which may be nil). Files already present and
// non-empty are skipped, not re-fetched. Any fetch failure aborts the whole
// run; cancellation stops it within one chunk read, leaving partial files
// in place.
func (p *Provisioner) Ensure(ctx context.Context, m *manifest.Manifest, fn ProgressFunc) error {
	if fn == nil {
		fn = func(Progress) {}
	}
	root := m.LocalRoot()
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create asset root: %w", err)
	}

	assets := m.Assets()
	files := make([]*fileState, len(assets))
	for i, d := range assets {
		files[i] = &fileState{desc: d, status: StatusPending, total: -1}
	}

	// Size probes are best effort. A failed probe degrades the aggregate
	// percentage, it never fails the run.
	var totalExpected int64 = -1
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return cancelledError{cause: err}
		}
		size, err := p.probeSize(ctx, f.desc.URL)
		if err != nil {
			if ctx.Err() != nil {
				return cancelledError{cause: ctx.Err()}
			}
			probeFailuresTotal.Inc()
			p.logger.Warn().Str("file", f.desc.Name).Err(err).Msg("size probe failed")
			continue
		}
		f.total = size
		if totalExpected < 0 {
			totalExpected = 0
		}
		totalExpected += size
	}

	var transferred int64
	emit := func(f *fileState) {
		fn(Progress{
			File:          f.desc.Name,
			Status:        f.status,
			FileBytes:     f.bytes,
			FileTotal:     f.total,
			TotalBytes:    transferred,
			TotalExpected: totalExpected,
		})
	}
	for _, f := range files {
		emit(f)
	}

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return cancelledError{cause: err}
		}
		local := m.LocalPath(f.desc)

		// Skip check: non-empty local file counts as complete. When a probe
		// gave us an expected size, a mismatching local size is treated as a
		// truncated leftover and redownloaded.
		if size := fsutil.FileSize(local); size > 0 && (f.total < 0 || size == f.total) {
			f.status = StatusSkipped
			f.bytes = size
			if f.total > 0 {
				transferred += f.total
			} else {
				transferred += size
			}
			filesTotal.WithLabelValues("skipped").Inc()
			p.logger.Debug().Str("file", f.desc.Name).Int64("size", size).Msg("asset present, skipping")
			emit(f)
			continue
		}

		if err := p.fetch(ctx, f, local, &transferred, emit); err != nil {
			if ctx.Err() != nil {
				return cancelledError{cause: ctx.Err()}
			}
			return networkError{file: f.desc.Name, cause: err}
		}
		filesTotal.WithLabelValues("downloaded").Inc()
	}
	return nil
}

// probeSize issues a header-only request for the asset's Content-Length.
func (p *Provisioner) probeSize(ctx context.Context, url string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if resp.ContentLength < 0 {
		return 0, fmt.Errorf("no content length")
	}
	return resp.ContentLength, nil
}

// fetch streams one asset to a .partial file and renames it into place.
// There is no range resumption: a partial file is always rewritten whole.
func (p *Provisioner) fetch(ctx context.Context, f *fileState, local string, transferred *int64, emit func(*fileState)) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.desc.URL, nil)
	if err != nil {
		return err
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	if f.total < 0 && resp.ContentLength >= 0 {
		// The GET knows the size even though the probe did not; use it for
		// the per-file percentage. The aggregate keeps its probed estimate.
		f.total = resp.ContentLength
	}

	tmp := local + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	f.status = StatusDownloading
	f.bytes = 0
	emit(f)

	buf := make([]byte, chunkSize)
	var sinceEmit int64
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, rerr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := out.Write(buf[:n]); werr != nil {
				return werr
			}
			f.bytes += int64(n)
			*transferred += int64(n)
			sinceEmit += int64(n)
			downloadBytesTotal.Add(float64(n))
			if sinceEmit >= progressInterval {
				sinceEmit = 0
				emit(f)
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return rerr
		}
	}

	if err := out.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp, local); err != nil {
		return err
	}
	f.status = StatusCompleted
	emit(f)
	p.logger.Info().Str("file", f.desc.Name).Int64("bytes", f.bytes).Msg("asset downloaded")
	return nil
}
