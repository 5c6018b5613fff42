package browser

import (
	"os"
	"path/filepath"

	"github.com/go-rod/rod/lib/launcher"
)

// Where an executable was resolved from.
const (
	SourcePreferred = "preferred"
	SourceCandidate = "candidate"
	SourcePath      = "path"
	SourceManaged   = "managed"
)

// DefaultCandidates are tried in order after the preferred executable. Entries may be
// glob patterns for versioned browser caches.
var DefaultCandidates = []string{
	"/usr/bin/chromium-browser",
	"/usr/bin/chromium",
	"/usr/bin/google-chrome-stable",
	"/usr/bin/google-chrome",
	"/usr/bin/chrome",
	"/opt/render/.cache/puppeteer/chrome/linux-*/chrome-linux64/chrome",
	"$HOME/.cache/puppeteer/chrome/linux-*/chrome-linux64/chrome",
	"$HOME/.cache/rod/browser/chromium-*/chrome",
}

// Candidate is one checked location.
type Candidate struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Resolution is the outcome of locating a browser executable. An empty Path means the
// engine default applies: rod downloads and manages its own build.
type Resolution struct {
	Path       string      `json:"path"`
	Source     string      `json:"source"`
	Candidates []Candidate `json:"candidates"`
}

// Locate resolves the executable: the preferred path, then each candidate (env vars and
// globs expanded), then the system PATH, then the managed default.
func Locate(preferred string, candidates []string) Resolution {
	res := Resolution{Source: SourceManaged}

	if preferred != "" {
		p := os.ExpandEnv(preferred)
		ok := isExecutable(p)
		res.Candidates = append(res.Candidates, Candidate{Path: p, Exists: ok})
		if ok {
			res.Path, res.Source = p, SourcePreferred
			return res
		}
	}

	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	for _, pattern := range withEnvOverrides(candidates) {
		for _, p := range expand(pattern) {
			ok := isExecutable(p)
			res.Candidates = append(res.Candidates, Candidate{Path: p, Exists: ok})
			if ok && res.Path == "" {
				res.Path, res.Source = p, SourceCandidate
			}
		}
		if res.Path != "" {
			return res
		}
	}

	if found, has := launcher.LookPath(); has {
		res.Path, res.Source = found, SourcePath
	}
	return res
}

func withEnvOverrides(candidates []string) []string {
	out := make([]string, 0, len(candidates)+2)
	for _, env := range []string{"PUPPETEER_EXECUTABLE_PATH", "CHROME_BIN"} {
		if v := os.Getenv(env); v != "" {
			out = append(out, v)
		}
	}
	return append(out, candidates...)
}

func expand(pattern string) []string {
	pattern = os.ExpandEnv(pattern)
	matches, err := filepath.Glob(pattern)
	if err != nil || len(matches) == 0 {
		return []string{pattern}
	}
	return matches
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
