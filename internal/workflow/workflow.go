// Package workflow logs into the third-party team settings through a browser and
// invites a customer into the team, returning the invite link.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/thayfamily/checklive/internal/browser"
	"github.com/thayfamily/checklive/internal/retry"
	"github.com/thayfamily/checklive/model"
)

const (
	DefaultLoginURL  = "https://www.canva.com/login"
	DefaultPeopleURL = "https://www.canva.com/settings/people"
	DefaultOrigin    = "https://www.canva.com"

	DefaultVerificationGrace = 10 * time.Second
	DefaultVerificationDelay = 5 * time.Second
	DefaultSettleDelay       = 3 * time.Second
	DefaultInviteSettle      = 5 * time.Second
	DefaultClipboardDelay    = 2 * time.Second
)

// CodeSource reads a login verification code for an account. An empty code with a nil
// error means no matching message yet.
type CodeSource interface {
	VerificationCode(ctx context.Context, account string) (string, error)
}

// Options tunes the workflow. Zero values fall back to defaults.
type Options struct {
	LoginURL             string
	PeopleURL            string
	Origin               string
	InviteLinkPattern    string
	InviteAttempts       int
	VerificationAttempts int
	VerificationDelay    time.Duration
	VerificationGrace    time.Duration
	StepTimeout          time.Duration
	LookupTimeout        time.Duration
	SettleDelay          time.Duration
	InviteSettle         time.Duration
	ClipboardDelay       time.Duration
	Copy                 Copy
}

func (o *Options) setDefaults() {
	if o.LoginURL == "" {
		o.LoginURL = DefaultLoginURL
	}
	if o.PeopleURL == "" {
		o.PeopleURL = DefaultPeopleURL
	}
	if o.Origin == "" {
		o.Origin = DefaultOrigin
	}
	if o.InviteLinkPattern == "" {
		o.InviteLinkPattern = DefaultInviteLinkPattern
	}
	if o.InviteAttempts <= 0 {
		o.InviteAttempts = 10
	}
	if o.VerificationAttempts <= 0 {
		o.VerificationAttempts = 3
	}
	if o.StepTimeout <= 0 {
		o.StepTimeout = 10 * time.Second
	}
	if o.LookupTimeout <= 0 {
		o.LookupTimeout = 5 * time.Second
	}
	if o.VerificationGrace <= 0 {
		o.VerificationGrace = DefaultVerificationGrace
	}
	if o.VerificationDelay <= 0 {
		o.VerificationDelay = DefaultVerificationDelay
	}
	if o.SettleDelay <= 0 {
		o.SettleDelay = DefaultSettleDelay
	}
	if o.InviteSettle <= 0 {
		o.InviteSettle = DefaultInviteSettle
	}
	if o.ClipboardDelay <= 0 {
		o.ClipboardDelay = DefaultClipboardDelay
	}
	if o.Copy.EmailLogin == nil {
		o.Copy = DefaultCopy()
	}
}

// Request is one transfer. OnLaunch, when set, receives the browser as soon as it is
// up so the caller can tear it down from outside.
type Request struct {
	Invitee     string
	Credentials model.Credentials
	OnLaunch    func(io.Closer)
}

type Workflow struct {
	launcher browser.Launcher
	codes    CodeSource
	opts     Options
	loc      locators
	pattern  *regexp.Regexp
	sleep    func(ctx context.Context, d time.Duration) error
}

func New(launcher browser.Launcher, codes CodeSource, opts Options) (*Workflow, error) {
	opts.setDefaults()
	pattern, err := regexp.Compile(opts.InviteLinkPattern)
	if err != nil {
		return nil, fmt.Errorf("invite link pattern: %w", err)
	}
	return &Workflow{
		launcher: launcher,
		codes:    codes,
		opts:     opts,
		loc:      opts.Copy.locators(opts.StepTimeout, opts.LookupTimeout),
		pattern:  pattern,
		sleep:    sleepCtx,
	}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type run struct {
	sess browser.Session
	req  Request
	log  *logrus.Entry
	link string
}

type step struct {
	name string
	fn   func(ctx context.Context, r *run) error
}

// Transfer runs the login and invite sequence and returns the invite link. The browser
// is closed before Transfer returns, whatever the outcome.
func (w *Workflow) Transfer(ctx context.Context, req Request) (link string, err error) {
	if !req.Credentials.Usable() {
		return "", model.ErrNoCredentials
	}

	ctx, span := otel.Tracer("checklive.workflow").Start(ctx, "Transfer")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	log := logrus.WithFields(logrus.Fields{"invitee": req.Invitee, "account": req.Credentials.Account})

	sess, err := w.launcher.Launch(ctx)
	if err != nil {
		return "", fmt.Errorf("launch browser: %w", err)
	}
	if req.OnLaunch != nil {
		req.OnLaunch(sess)
	}
	defer func() {
		if cerr := sess.Close(); cerr != nil {
			log.WithError(cerr).Warn("closing browser")
		}
	}()

	r := &run{sess: sess, req: req, log: log}
	steps := []step{
		{"open login page", w.openLogin},
		{"choose email login", w.chooseEmailLogin},
		{"enter account email", w.enterEmail},
		{"enter password", w.enterPassword},
		{"verification challenge", w.verify},
		{"open people page", w.openPeople},
		{"invite", w.inviteLoop},
	}
	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if err := w.runStep(ctx, r, s); err != nil {
			return "", err
		}
	}
	return r.link, nil
}

func (w *Workflow) runStep(ctx context.Context, r *run, s step) error {
	ctx, span := otel.Tracer("checklive.workflow").Start(ctx, s.name)
	defer span.End()

	r.log.WithField("step", s.name).Info("transfer step")
	if err := s.fn(ctx, r); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.capture(ctx, r.sess, s.name)
		r.log.WithField("step", s.name).WithError(err).Error("transfer step failed")
		return err
	}
	return nil
}

// capture takes a best effort screenshot for diagnosis.
func (w *Workflow) capture(ctx context.Context, sess browser.Session, name string) {
	if ctx.Err() != nil {
		return
	}
	if err := sess.Screenshot(ctx, name); err != nil {
		logrus.WithError(err).WithField("step", name).Debug("screenshot failed")
	}
}

func (w *Workflow) openLogin(ctx context.Context, r *run) error {
	if err := r.sess.Navigate(ctx, w.opts.LoginURL); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}
	return nil
}

func (w *Workflow) chooseEmailLogin(ctx context.Context, r *run) error {
	err := r.sess.Click(ctx, w.loc.emailLogin)
	if err == nil || ctx.Err() != nil {
		return ctx.Err()
	}
	r.log.WithError(err).Warn("email login button not clicked, continuing")
	return nil
}

func (w *Workflow) enterEmail(ctx context.Context, r *run) error {
	typed := false
	for _, loc := range w.loc.emailInputs {
		err := r.sess.Type(ctx, loc, r.req.Credentials.Account)
		if err == nil {
			typed = true
			break
		}
		if !errors.Is(err, browser.ErrElementNotFound) {
			return fmt.Errorf("type account email: %w", err)
		}
	}
	if !typed {
		return fmt.Errorf("account email input: %w", browser.ErrElementNotFound)
	}

	if err := r.sess.Click(ctx, w.loc.continueBtn); err != nil {
		if !errors.Is(err, browser.ErrElementNotFound) {
			return fmt.Errorf("continue after email: %w", err)
		}
		r.log.Warn("continue button not found after email")
	}
	if err := w.sleep(ctx, w.opts.SettleDelay); err != nil {
		return err
	}

	html, err := r.sess.HTML(ctx)
	if err != nil {
		return fmt.Errorf("read login page: %w", err)
	}
	return checkBlocked(html, w.opts.Copy)
}

func (w *Workflow) enterPassword(ctx context.Context, r *run) error {
	if err := r.sess.Type(ctx, w.loc.password, r.req.Credentials.Password); err != nil {
		return fmt.Errorf("password input: %w", err)
	}
	if err := r.sess.Click(ctx, w.loc.logIn); err != nil {
		return fmt.Errorf("log in: %w", err)
	}
	return w.sleep(ctx, w.opts.SettleDelay)
}

func (w *Workflow) verify(ctx context.Context, r *run) error {
	err := r.sess.Wait(ctx, w.loc.code)
	if errors.Is(err, browser.ErrElementNotFound) {
		r.log.Info("no verification needed")
		return nil
	}
	if err != nil {
		return fmt.Errorf("look for verification input: %w", err)
	}

	r.log.Info("verification code requested")
	if err := w.sleep(ctx, w.opts.VerificationGrace); err != nil {
		return err
	}

	account := r.req.Credentials.Account
	if w.codes == nil {
		return &VerificationUnavailableError{Account: account, Err: errNoMailbox}
	}
	var code string
	err = retry.Do(ctx, retry.Policy{
		Name:     "verification code",
		Attempts: w.opts.VerificationAttempts,
		Delay:    w.opts.VerificationDelay,
	}, func(int) error {
		c, err := w.codes.VerificationCode(ctx, account)
		if err != nil {
			return err
		}
		if c == "" {
			return errNoCode
		}
		code = c
		return nil
	})
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err != nil {
		return &VerificationUnavailableError{Account: account, Attempts: w.opts.VerificationAttempts, Err: err}
	}

	if err := r.sess.Type(ctx, w.loc.code, code); err != nil {
		return fmt.Errorf("type verification code: %w", err)
	}
	if err := r.sess.Click(ctx, w.loc.verify); err != nil {
		return fmt.Errorf("submit verification code: %w", err)
	}
	return w.sleep(ctx, w.opts.SettleDelay)
}

func (w *Workflow) openPeople(ctx context.Context, r *run) error {
	if err := r.sess.Navigate(ctx, w.opts.PeopleURL); err != nil {
		return fmt.Errorf("open people page: %w", err)
	}
	if err := r.sess.GrantClipboard(ctx, w.opts.Origin); err != nil {
		r.log.WithError(err).Warn("clipboard permission not granted, will scan the page instead")
	}
	return nil
}

func (w *Workflow) inviteLoop(ctx context.Context, r *run) error {
	err := retry.Do(ctx, retry.Policy{
		Name:     "invite",
		Attempts: w.opts.InviteAttempts,
		Delay:    w.opts.SettleDelay,
		Retryable: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
	}, func(attempt int) error {
		if attempt > 1 {
			if err := r.sess.Reload(ctx); err != nil {
				return fmt.Errorf("reload people page: %w", err)
			}
		}
		return w.invite(ctx, r)
	})

	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		return &LoopExhaustedError{Email: r.req.Invitee, Attempts: exhausted.Attempts, Err: exhausted.Err}
	}
	return err
}

const copyLinkJS = `(rows, labels) => {
	const labelled = b => labels.some(l => (b.getAttribute('aria-label') || '').includes(l));
	const spans = Array.from(document.querySelectorAll('span'));
	for (const row of rows) {
		const span = spans.find(s => (s.textContent || '').includes(row));
		if (!span) continue;
		let el = span;
		for (let i = 0; i < 8 && el; i++, el = el.parentElement) {
			const btn = Array.from(el.querySelectorAll('button')).find(labelled);
			if (btn) { btn.click(); return 'row'; }
		}
	}
	const any = Array.from(document.querySelectorAll('button')).find(labelled);
	if (any) { any.click(); return 'any'; }
	return '';
}`

func (w *Workflow) invite(ctx context.Context, r *run) error {
	sess := r.sess
	actions := []struct {
		what string
		do   func() error
	}{
		{"open invite dialog", func() error { return sess.Click(ctx, w.loc.inviteButton) }},
		{"open role selector", func() error { return sess.Click(ctx, w.loc.roleSelector) }},
		{"choose role", func() error { return sess.Click(ctx, w.loc.roleOption) }},
		{"type invitee email", func() error { return sess.Type(ctx, w.loc.inviteeEmail, r.req.Invitee) }},
		{"confirm invite", func() error { return sess.Click(ctx, w.loc.confirmInvite) }},
	}
	for _, a := range actions {
		if err := a.do(); err != nil {
			return fmt.Errorf("%s: %w", a.what, err)
		}
	}
	if err := w.sleep(ctx, w.opts.InviteSettle); err != nil {
		return err
	}

	c := w.opts.Copy
	matched, err := sess.Eval(ctx, copyLinkJS, c.rowTexts(r.req.Invitee), c.CopyLinkLabels)
	if err != nil {
		return fmt.Errorf("copy invite link: %w", err)
	}
	switch matched {
	case "":
		return errCopyControlMissing
	case "any":
		r.log.Warn("invite row not matched, used first copy link control")
	}
	if err := w.sleep(ctx, w.opts.ClipboardDelay); err != nil {
		return err
	}

	clip, err := sess.ReadClipboard(ctx)
	if err != nil {
		r.log.WithError(err).Warn("clipboard read failed")
	}
	if link := w.pattern.FindString(clip); link != "" {
		r.link = link
		return nil
	}

	html, err := sess.HTML(ctx)
	if err != nil {
		return fmt.Errorf("read people page: %w", err)
	}
	if link := FindInviteLink(html, w.pattern); link != "" {
		r.log.Info("invite link found in page")
		r.link = link
		return nil
	}
	return errNoInviteLink
}
