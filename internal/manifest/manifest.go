package manifest

import (
	"bufio"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"visiond/internal/common/fsutil"
	"visiond/pkg/types"
)

// ReadyMarker is the file whose presence under the local root signals that
// provisioning has completed at least once.
const ReadyMarker = "tokenizer_config.json"

//go:embed model_download_urls.txt
var embeddedURLs string

// Descriptor identifies one remote asset and its local file name.
// Identity is the local file name.
type Descriptor struct {
	URL  string
	Name string
}

// Manifest is the static, ordered list of model package assets together with
// the local root directory they resolve into.
type Manifest struct {
	root   string
	assets []Descriptor
}

// DefaultRoot returns the platform default local root for the model package.
func DefaultRoot() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("user config dir: %w", err)
	}
	return filepath.Join(base, "visiond", "model"), nil
}

// Load builds the manifest from the embedded URL list. root may start with
// '~'; when empty the platform default is used.
func Load(root string) (*Manifest, error) {
	return New(root, embeddedURLs)
}

// New builds a manifest from a newline-separated URL list.
func New(root, urls string) (*Manifest, error) {
	if root == "" {
		def, err := DefaultRoot()
		if err != nil {
			return nil, manifestUnavailableError{cause: err}
		}
		root = def
	}
	expanded, err := fsutil.ExpandHome(root)
	if err != nil {
		return nil, manifestUnavailableError{cause: err}
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, manifestUnavailableError{cause: err}
	}
	assets, err := parse(urls)
	if err != nil {
		return nil, err
	}
	return &Manifest{root: abs, assets: assets}, nil
}

func parse(urls string) ([]Descriptor, error) {
	var assets []Descriptor
	seen := make(map[string]bool)
	sc := bufio.NewScanner(strings.NewReader(urls))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		u, err := url.Parse(line)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, manifestUnavailableError{cause: fmt.Errorf("bad URL %q", line)}
		}
		name := path.Base(u.Path)
		if name == "." || name == "/" || name == "" {
			return nil, manifestUnavailableError{cause: fmt.Errorf("URL %q has no file name", line)}
		}
		if seen[name] {
			return nil, manifestUnavailableError{cause: fmt.Errorf("duplicate asset name %q", name)}
		}
		seen[name] = true
		assets = append(assets, Descriptor{URL: line, Name: name})
	}
	if len(assets) == 0 {
		return nil, manifestUnavailableError{cause: fmt.Errorf("no asset URLs")}
	}
	return assets, nil
}

// Assets returns the ordered asset list as a copy.
func (m *Manifest) Assets() []Descriptor {
	out := make([]Descriptor, len(m.assets))
	copy(out, m.assets)
	return out
}

// LocalRoot returns the absolute local root directory.
func (m *Manifest) LocalRoot() string { return m.root }

// LocalPath resolves a descriptor to its absolute local path.
func (m *Manifest) LocalPath(d Descriptor) string {
	return filepath.Join(m.root, d.Name)
}

// Provisioned reports whether the ready marker exists under the local root.
// It is the gate deciding whether provisioning is needed before a run.
func (m *Manifest) Provisioned() bool {
	return fsutil.FileNonEmpty(filepath.Join(m.root, ReadyMarker))
}

// Statuses reports per-asset local presence and size.
func (m *Manifest) Statuses() []types.AssetStatus {
	out := make([]types.AssetStatus, 0, len(m.assets))
	for _, d := range m.assets {
		p := m.LocalPath(d)
		size := fsutil.FileSize(p)
		if size < 0 {
			size = 0
		}
		out = append(out, types.AssetStatus{
			Asset:     types.Asset{Name: d.Name, URL: d.URL, Path: p},
			Present:   fsutil.FileNonEmpty(p),
			SizeBytes: size,
		})
	}
	return out
}
