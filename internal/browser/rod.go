package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/sirupsen/logrus"
)

const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// DefaultFlags let Chromium run unprivileged inside a small container.
var DefaultFlags = []string{
	"--no-sandbox",
	"--disable-setuid-sandbox",
	"--disable-dev-shm-usage",
	"--disable-accelerated-2d-canvas",
	"--no-first-run",
	"--no-zygote",
	"--single-process",
	"--disable-gpu",
	"--disable-blink-features=AutomationControlled",
	"--disable-features=VizDisplayCompositor",
	"--disable-extensions",
	"--disable-background-timer-throttling",
	"--disable-backgrounding-occluded-windows",
	"--disable-renderer-backgrounding",
	"--incognito",
}

// Options configures the rod launcher.
type Options struct {
	Executable        string
	Candidates        []string
	Headless          bool
	ExtraFlags        []string
	UserAgent         string
	ScreenshotDir     string
	NavigationTimeout time.Duration
}

// RodLauncher launches Chromium through go-rod.
type RodLauncher struct {
	opts Options
}

func NewRodLauncher(opts Options) *RodLauncher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	return &RodLauncher{opts: opts}
}

func (r *RodLauncher) newLauncher(ctx context.Context, bin string) *launcher.Launcher {
	l := launcher.New().Context(ctx).Headless(r.opts.Headless)
	if bin != "" {
		l = l.Bin(bin)
	}
	all := append(append([]string{}, DefaultFlags...), r.opts.ExtraFlags...)
	all = append(all, "--user-agent="+r.opts.UserAgent)
	for _, raw := range all {
		name, val, hasVal := strings.Cut(strings.TrimLeft(raw, "-"), "=")
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	return l
}

// Launch starts the browser at the located executable, falling back to rod's managed
// build when that fails, and opens a stealth page in an incognito context.
func (r *RodLauncher) Launch(ctx context.Context) (Session, error) {
	res := Locate(r.opts.Executable, r.opts.Candidates)
	logrus.WithFields(logrus.Fields{"path": res.Path, "source": res.Source}).Info("launching browser")

	l := r.newLauncher(ctx, res.Path)
	controlURL, err := l.Launch()
	if err != nil && res.Path != "" {
		logrus.WithError(err).Warn("launch at located path failed, falling back to managed browser")
		l.Kill()
		l = r.newLauncher(ctx, "")
		controlURL, err = l.Launch()
	}
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	incognito, err := b.Incognito()
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("incognito context: %w", err)
	}

	page, err := stealth.Page(incognito)
	if err != nil {
		_ = b.Close()
		l.Kill()
		return nil, fmt.Errorf("stealth page: %w", err)
	}
	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: r.opts.UserAgent}); err != nil {
		logrus.WithError(err).Warn("could not override user agent")
	}

	return &rodSession{
		opts:      r.opts,
		launcher:  l,
		browser:   b,
		incognito: incognito,
		page:      page,
	}, nil
}

type rodSession struct {
	opts      Options
	launcher  *launcher.Launcher
	browser   *rod.Browser
	incognito *rod.Browser
	page      *rod.Page

	closeOnce sync.Once
	closeErr  error
}

const detachDelay = 500 * time.Millisecond

// inPage retries fn while the page's execution context is being replaced.
func (s *rodSession) inPage(ctx context.Context, name string, fn func(p *rod.Page) error) error {
	return detachRetry(ctx, name, detachDelay, func() error {
		return fn(s.page.Context(ctx))
	})
}

const navigationStatusJS = `() => {
	const e = performance.getEntriesByType('navigation')[0];
	return e && e.responseStatus ? e.responseStatus : 0;
}`

func (s *rodSession) Navigate(ctx context.Context, url string) error {
	nctx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	p := s.page.Context(nctx)
	if err := p.Navigate(url); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	if err := p.WaitLoad(); err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}

	var status int
	err := s.inPage(nctx, "navigation status", func(p *rod.Page) error {
		res, err := p.Eval(navigationStatusJS)
		if err != nil {
			return err
		}
		status = res.Value.Int()
		return nil
	})
	if err != nil {
		return err
	}
	if status >= 400 {
		return fmt.Errorf("navigate to %s: http status %d", url, status)
	}
	return nil
}

func (s *rodSession) Reload(ctx context.Context) error {
	nctx, cancel := context.WithTimeout(ctx, s.opts.NavigationTimeout)
	defer cancel()

	p := s.page.Context(nctx)
	if err := p.Reload(); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	return p.WaitLoad()
}

const findElementJS = `(sel, texts, labels, excludes) => {
	const norm = s => (s || '').replace(/\s+/g, ' ').trim();
	const found = Array.from(document.querySelectorAll(sel)).find(el => {
		const text = norm(el.textContent);
		const label = norm(el.getAttribute('aria-label'));
		if (excludes.some(x => text.includes(x))) return false;
		if (texts.length === 0 && labels.length === 0) return true;
		return texts.some(x => text.includes(x)) || labels.some(x => label.includes(x));
	});
	return found || null;
}`

func (s *rodSession) finder(l Locator) func(ctx context.Context) (*rod.Element, error) {
	return func(ctx context.Context) (*rod.Element, error) {
		el, err := s.page.Context(ctx).ElementByJS(rod.Eval(findElementJS, l.Selector, nonNil(l.Texts), nonNil(l.Labels), nonNil(l.Exclude)))
		var missing *rod.ElementNotFoundError
		if errors.As(err, &missing) {
			return nil, NotFound(l)
		}
		return el, err
	}
}

func (s *rodSession) Wait(ctx context.Context, l Locator) error {
	return withElement(ctx, l, "find", detachDelay, s.finder(l), nil)
}

func (s *rodSession) Click(ctx context.Context, l Locator) error {
	return withElement(ctx, l, "click", detachDelay, s.finder(l), func(el *rod.Element) error {
		_, err := el.Context(ctx).Eval(`() => this.click()`)
		return err
	})
}

func (s *rodSession) Type(ctx context.Context, l Locator, text string) error {
	return withElement(ctx, l, "type into", detachDelay, s.finder(l), func(el *rod.Element) error {
		el = el.Context(ctx)
		if _, err := el.Eval(`() => this.focus()`); err != nil {
			return err
		}
		// a retried attempt replaces what an earlier one typed
		if err := el.SelectAllText(); err != nil {
			return err
		}
		return el.Input(text)
	})
}

func (s *rodSession) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.inPage(ctx, "page html", func(p *rod.Page) error {
		var err error
		html, err = p.HTML()
		return err
	})
	return html, err
}

func (s *rodSession) Eval(ctx context.Context, js string, args ...interface{}) (string, error) {
	var out string
	err := s.inPage(ctx, "eval", func(p *rod.Page) error {
		res, err := p.Evaluate(rod.Eval(js, args...).ByPromise())
		if err != nil {
			return err
		}
		if res.Value.Nil() {
			out = ""
			return nil
		}
		out = res.Value.Str()
		return nil
	})
	return out, err
}

func (s *rodSession) GrantClipboard(ctx context.Context, origin string) error {
	return proto.BrowserGrantPermissions{
		Permissions: []proto.BrowserPermissionType{
			proto.BrowserPermissionTypeClipboardReadWrite,
			proto.BrowserPermissionTypeClipboardSanitizedWrite,
		},
		Origin:           origin,
		BrowserContextID: s.incognito.BrowserContextID,
	}.Call(s.browser.Context(ctx))
}

func (s *rodSession) ReadClipboard(ctx context.Context) (string, error) {
	return s.Eval(ctx, `async () => await navigator.clipboard.readText()`)
}

// Screenshot writes a full page PNG into the configured directory. It is diagnostic only.
func (s *rodSession) Screenshot(ctx context.Context, name string) error {
	if s.opts.ScreenshotDir == "" {
		return nil
	}
	buf, err := s.page.Context(ctx).Screenshot(true, nil)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.opts.ScreenshotDir, 0o755); err != nil {
		return err
	}
	file := filepath.Join(s.opts.ScreenshotDir, fmt.Sprintf("%s-%d.png", name, time.Now().Unix()))
	return os.WriteFile(file, buf, 0o644)
}

func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.browser.Close()
		s.launcher.Kill()
		s.launcher.Cleanup()
	})
	return s.closeErr
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
