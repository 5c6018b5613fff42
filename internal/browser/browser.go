// Package browser is the remote-browser capability the transfer workflow drives. The
// workflow only sees Session; the go-rod backed implementation and the executable
// locator live alongside it.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thayfamily/checklive/internal/retry"
)

// ErrElementNotFound means a locator matched nothing before its timeout. Callers decide
// whether that is fatal, retryable or simply "not needed".
var ErrElementNotFound = errors.New("element not found")

// Locator identifies an element by CSS selector, optionally narrowed by visible text or
// aria-label fragments. An element matches when any Texts fragment is in its text or any
// Labels fragment is in its aria-label, and no Exclude fragment is in its text.
type Locator struct {
	Name     string
	Selector string
	Texts    []string
	Labels   []string
	Exclude  []string
	Timeout  time.Duration
}

func (l Locator) String() string {
	if l.Name != "" {
		return l.Name
	}
	return l.Selector
}

// Session is one browser with one page. Close must be safe to call more than once and
// from another goroutine.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	Wait(ctx context.Context, l Locator) error
	Click(ctx context.Context, l Locator) error
	Type(ctx context.Context, l Locator, text string) error
	HTML(ctx context.Context) (string, error)
	Eval(ctx context.Context, js string, args ...interface{}) (string, error)
	GrantClipboard(ctx context.Context, origin string) error
	ReadClipboard(ctx context.Context) (string, error)
	Screenshot(ctx context.Context, name string) error
	Close() error
}

// Launcher starts a new Session.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// NotFound wraps ErrElementNotFound with the locator that missed.
func NotFound(l Locator) error {
	return fmt.Errorf("%w: %s", ErrElementNotFound, l)
}

var detachedSignatures = []string{
	"execution context was destroyed",
	"cannot find context with specified id",
	"inspected target navigated or closed",
	"context with specified id",
	"detached",
}

// IsDetached reports whether err comes from evaluating script against a page that
// navigated or reloaded underneath it. Such errors are expected to clear on retry.
func IsDetached(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, sig := range detachedSignatures {
		if strings.Contains(msg, sig) {
			return true
		}
	}
	return false
}

const detachAttempts = 3

func detachRetry(ctx context.Context, name string, delay time.Duration, fn func() error) error {
	err := retry.Do(ctx, retry.Policy{
		Name:      name,
		Attempts:  detachAttempts,
		Delay:     delay,
		Retryable: IsDetached,
	}, func(int) error {
		return fn()
	})
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return fmt.Errorf("%s: execution context kept detaching after %d attempts: %w", name, exhausted.Attempts, exhausted.Err)
	}
	return err
}

// actionError is a failure after the element was found.
type actionError struct {
	what    string
	locator Locator
	err     error
}

func (e *actionError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.what, e.locator, e.err)
}

func (e *actionError) Unwrap() error {
	return e.err
}

// withElement finds l and runs act on it as one unit. A detach in either half runs the
// lookup again, so act never touches an element of a replaced document. The locator
// timeout bounds the whole unit. A nil act only waits for the element.
func withElement[E any](ctx context.Context, l Locator, what string, delay time.Duration, find func(ctx context.Context) (E, error), act func(E) error) error {
	wctx := ctx
	if l.Timeout > 0 {
		var cancel context.CancelFunc
		wctx, cancel = context.WithTimeout(ctx, l.Timeout)
		defer cancel()
	}

	err := detachRetry(wctx, what+" "+l.String(), delay, func() error {
		el, err := find(wctx)
		if err != nil {
			return err
		}
		if act == nil {
			return nil
		}
		if err := act(el); err != nil {
			return &actionError{what: what, locator: l, err: err}
		}
		return nil
	})
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	var failed *actionError
	if errors.As(err, &failed) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrElementNotFound) {
		return NotFound(l)
	}
	return err
}
