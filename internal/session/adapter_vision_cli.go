package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// visionCLIAdapter runs a llava.cpp-style command line per generation and
// streams its stdout as text deltas. Any binary accepting
// `--model-dir DIR --image FILE -p PROMPT` works; this keeps default builds
// CGO-free the same way the daemon's other runtimes stay optional.

// VisionCLIConfig configures the subprocess runtime.
type VisionCLIConfig struct {
	// Bin is the CLI executable. Looked up on PATH when not absolute.
	Bin string
	// ExtraArgs are appended verbatim after the generated flags.
	ExtraArgs []string
}

type visionCLIAdapter struct {
	bin   string
	extra []string
}

// NewVisionCLIAdapter constructs the subprocess-backed adapter.
func NewVisionCLIAdapter(cfg VisionCLIConfig) InferenceAdapter {
	bin := strings.TrimSpace(cfg.Bin)
	if bin == "" {
		bin = "llava-cli"
	}
	return &visionCLIAdapter{bin: bin, extra: append([]string(nil), cfg.ExtraArgs...)}
}

type visionCLISession struct {
	bin      string
	extra    []string
	modelDir string
	params   InferParams
}

func (a *visionCLIAdapter) Start(modelDir string, params InferParams) (InferSession, error) {
	if strings.TrimSpace(modelDir) == "" {
		return nil, errors.New("model dir is empty")
	}
	if fi, err := os.Stat(modelDir); err != nil || !fi.IsDir() {
		return nil, fmt.Errorf("model dir %s not usable: %v", modelDir, err)
	}
	if _, err := exec.LookPath(a.bin); err != nil {
		return nil, ErrDependencyUnavailable("vision CLI not found: " + a.bin)
	}
	return &visionCLISession{bin: a.bin, extra: a.extra, modelDir: modelDir, params: params}, nil
}

func (s *visionCLISession) Generate(ctx context.Context, prompt string, image []byte, onToken func(string) error) (FinalResult, error) {
	tmp, err := os.CreateTemp("", "visiond-image-*")
	if err != nil {
		return FinalResult{}, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(image); err != nil {
		tmp.Close()
		return FinalResult{}, err
	}
	if err := tmp.Close(); err != nil {
		return FinalResult{}, err
	}

	args := []string{
		"--model-dir", s.modelDir,
		"--image", tmp.Name(),
		"-n", fmt.Sprint(s.params.MaxTokens),
		"-p", prompt,
	}
	if s.params.Temperature > 0 {
		args = append(args, "--temp", fmt.Sprintf("%g", s.params.Temperature))
	}
	if s.params.Threads > 0 {
		args = append(args, "-t", fmt.Sprint(s.params.Threads))
	}
	if s.params.CtxSize > 0 {
		args = append(args, "-c", fmt.Sprint(s.params.CtxSize))
	}
	args = append(args, s.extra...)

	cmd := exec.CommandContext(ctx, s.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return FinalResult{}, err
	}
	if err := cmd.Start(); err != nil {
		return FinalResult{}, fmt.Errorf("start %s: %w", s.bin, err)
	}

	var b strings.Builder
	buf := make([]byte, 4096)
	for {
		if err := ctx.Err(); err != nil {
			_ = cmd.Wait()
			return FinalResult{Content: b.String()}, err
		}
		n, rerr := stdout.Read(buf)
		if n > 0 {
			frag := string(buf[:n])
			b.WriteString(frag)
			if cbErr := onToken(frag); cbErr != nil {
				_ = cmd.Process.Kill()
				_ = cmd.Wait()
				return FinalResult{Content: b.String()}, cbErr
			}
		}
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			_ = cmd.Wait()
			if ctx.Err() != nil {
				return FinalResult{Content: b.String()}, ctx.Err()
			}
			return FinalResult{Content: b.String()}, rerr
		}
	}

	if err := cmd.Wait(); err != nil {
		if ctx.Err() != nil {
			return FinalResult{Content: b.String()}, ctx.Err()
		}
		tail := stderr.String()
		if len(tail) > 4096 {
			tail = tail[len(tail)-4096:]
		}
		return FinalResult{Content: b.String()}, fmt.Errorf("%s exited: %v; stderr tail: %s", s.bin, err, tail)
	}
	return FinalResult{Content: b.String(), FinishReason: "stop"}, nil
}

func (s *visionCLISession) Close() error { return nil }
