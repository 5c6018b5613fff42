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

package checklive

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/thayfamily/checklive/config"
	"github.com/thayfamily/checklive/internal/lock"
	"github.com/thayfamily/checklive/internal/notification"
	"github.com/thayfamily/checklive/internal/workflow"
)

const tracerName = "checklive"

// SheetStore is the spreadsheet both lookups read and the transfer writes back to.
type SheetStore interface {
	Rows(ctx context.Context, table string) ([][]string, error)
	UpdateCell(ctx context.Context, table, cell, value string) error
}

// TransferRunner performs the browser side of a transfer and returns the invite link.
type TransferRunner interface {
	Transfer(ctx context.Context, req workflow.Request) (string, error)
}

// Checklive ties the spreadsheet lookups to the transfer workflow.
type Checklive struct {
	sheets SheetStore
	runner TransferRunner
	lock   *lock.TransferLock
	sheet  config.SheetConfig
	budget time.Duration
	notify func(error)
}

type Option func(*Checklive)

// WithNotifier replaces the failure notifier, which defaults to notification.NotifyError.
func WithNotifier(fn func(error)) Option {
	return func(c *Checklive) {
		c.notify = fn
	}
}

// WithBudget overrides the overall time allowed for one transfer.
func WithBudget(d time.Duration) Option {
	return func(c *Checklive) {
		c.budget = d
	}
}

// NewChecklive builds the service from the loaded configuration. runner may be nil when
// only lookups are needed.
func NewChecklive(sheets SheetStore, runner TransferRunner, transferLock *lock.TransferLock, opts ...Option) (*Checklive, error) {
	cnf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	if transferLock == nil {
		transferLock = lock.New(time.Duration(cnf.Transfer.StaleAfterSec)*time.Second, nil)
	}

	c := &Checklive{
		sheets: sheets,
		runner: runner,
		lock:   transferLock,
		sheet:  cnf.Sheet,
		budget: time.Duration(cnf.Transfer.BudgetSec) * time.Second,
		notify: notification.NotifyError,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TransferStatus reports who holds the transfer slot, if anyone, in this process or in
// another one sharing the Redis guard.
func (c *Checklive) TransferStatus(ctx context.Context) (lock.Holder, bool) {
	holder, busy, err := c.lock.Current(ctx)
	if err != nil {
		logrus.WithError(err).Warn("reading transfer guard")
	}
	return holder, busy
}
