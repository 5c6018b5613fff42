/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package lock admits one transfer at a time. A TransferLock is a single slot held by a
// Lease; an optional Redis Guard extends the exclusion to other processes.
package lock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var ErrTransferInProgress = errors.New("a transfer is already in progress")

// Holder describes the current lease for operators. Remote is set when the slot is
// held by another process sharing the guard.
type Holder struct {
	Owner   string    `json:"owner"`
	Started time.Time `json:"started"`
	Remote  bool      `json:"remote,omitempty"`
}

type TransferLock struct {
	mu    sync.Mutex
	stale time.Duration
	guard *Guard
	cur   *Lease
	now   func() time.Time
}

// New returns an empty lock. guard may be nil.
func New(stale time.Duration, guard *Guard) *TransferLock {
	return &TransferLock{stale: stale, guard: guard, now: time.Now}
}

// Lease is proof of holding the slot. The browser of the run is attached to it so a
// force clear can tear it down.
type Lease struct {
	Owner   string
	Started time.Time

	token  string
	cancel context.CancelFunc

	mu      sync.Mutex
	handle  io.Closer
	aborted bool
}

// Attach registers the run's browser. If the lease was already force cleared the
// handle is closed at once.
func (l *Lease) Attach(c io.Closer) {
	l.mu.Lock()
	if !l.aborted {
		l.handle = c
		l.mu.Unlock()
		return
	}
	l.mu.Unlock()
	closeHandle(l.Owner, c)
}

func (l *Lease) abort() {
	l.mu.Lock()
	l.aborted = true
	h := l.handle
	l.handle = nil
	l.mu.Unlock()

	if l.cancel != nil {
		l.cancel()
	}
	if h != nil {
		closeHandle(l.Owner, h)
	}
}

func closeHandle(owner string, c io.Closer) {
	if err := c.Close(); err != nil {
		logrus.WithError(err).WithField("owner", owner).Warn("closing browser of cleared transfer")
	}
}

// TryAcquire takes the slot for owner or fails with ErrTransferInProgress without
// waiting. cancel is invoked if the lease is later force cleared.
func (t *TransferLock) TryAcquire(ctx context.Context, owner string, cancel context.CancelFunc) (*Lease, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cur != nil {
		return nil, ErrTransferInProgress
	}

	started := t.now()
	token := guardValue(owner, started)
	if t.guard != nil {
		ok, err := t.guard.Acquire(ctx, token, t.stale)
		if err != nil {
			return nil, fmt.Errorf("transfer guard: %w", err)
		}
		if !ok {
			return nil, ErrTransferInProgress
		}
	}

	t.cur = &Lease{Owner: owner, Started: started, token: token, cancel: cancel}
	return t.cur, nil
}

// Release frees the slot if lease still holds it. Releasing twice, or releasing a lease
// that was force cleared, is a no-op.
func (t *TransferLock) Release(ctx context.Context, lease *Lease) {
	if lease == nil {
		return
	}
	t.mu.Lock()
	if t.cur == lease {
		t.cur = nil
	}
	t.mu.Unlock()

	t.releaseGuard(ctx, lease)
}

// ForceClearIfStale empties the slot when the current lease is older than the staleness
// timeout, cancelling its run and closing its browser. It reports whether it cleared.
func (t *TransferLock) ForceClearIfStale(ctx context.Context) bool {
	t.mu.Lock()
	cur := t.cur
	if cur == nil || t.now().Sub(cur.Started) <= t.stale {
		t.mu.Unlock()
		return false
	}
	t.cur = nil
	t.mu.Unlock()

	logrus.WithFields(logrus.Fields{
		"owner":   cur.Owner,
		"started": cur.Started,
	}).Warn("clearing stale transfer lock")
	cur.abort()
	t.releaseGuard(ctx, cur)
	return true
}

// Status returns the current holder, if any.
func (t *TransferLock) Status() (Holder, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cur == nil {
		return Holder{}, false
	}
	return Holder{Owner: t.cur.Owner, Started: t.cur.Started}, true
}

// Current is Status extended to the guard: when this process is idle it reports a
// lease held by another process. A guard error is returned with the local view.
func (t *TransferLock) Current(ctx context.Context) (Holder, bool, error) {
	if h, ok := t.Status(); ok || t.guard == nil {
		return h, ok, nil
	}
	v, err := t.guard.Holder(ctx)
	if err != nil {
		return Holder{}, false, fmt.Errorf("transfer guard: %w", err)
	}
	if v == "" {
		return Holder{}, false, nil
	}
	h := parseGuardValue(v)
	h.Remote = true
	return h, true, nil
}

// guardValue is the Redis value of a lease: start time, a unique id, then the owner.
// The id keeps two leases with the same owner and start apart.
func guardValue(owner string, started time.Time) string {
	return started.UTC().Format(time.RFC3339Nano) + "|" + uuid.NewString() + "|" + owner
}

// parseGuardValue reads a value written by guardValue. A value it cannot read still
// means the slot is held, with the owner unknown.
func parseGuardValue(v string) Holder {
	parts := strings.SplitN(v, "|", 3)
	if len(parts) != 3 {
		return Holder{}
	}
	started, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return Holder{}
	}
	return Holder{Owner: parts[2], Started: started}
}

func (t *TransferLock) releaseGuard(ctx context.Context, lease *Lease) {
	if t.guard == nil {
		return
	}
	if err := t.guard.Release(ctx, lease.token); err != nil && !errors.Is(err, ErrNotHolder) {
		logrus.WithError(err).WithField("owner", lease.Owner).Warn("releasing transfer guard")
	}
}
