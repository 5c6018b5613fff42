package main

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thayfamily/checklive/config"
	"github.com/thayfamily/checklive/internal/cache"
	"github.com/thayfamily/checklive/internal/googleauth"
	"github.com/thayfamily/checklive/internal/lock"
	redis_db "github.com/thayfamily/checklive/internal/redis-db"
	"github.com/thayfamily/checklive/internal/sheets"
	"github.com/thayfamily/checklive/internal/workflow"
)

func TestWorkflowOptions(t *testing.T) {
	opts := workflowOptions(config.AutomationConfig{
		PeopleURL:           "https://example.test/people",
		InviteAttempts:      4,
		VerificationDelayMs: 1500,
		SettleDelayMs:       250,
		ClipboardDelayMs:    800,
		StepTimeoutMs:       7000,
		Copy:                map[string]string{"confirm": "Send invite|Invite"},
	})

	assert.Equal(t, "https://example.test/people", opts.PeopleURL)
	assert.Equal(t, 4, opts.InviteAttempts)
	assert.Equal(t, 1500*time.Millisecond, opts.VerificationDelay)
	assert.Equal(t, 250*time.Millisecond, opts.SettleDelay)
	assert.Equal(t, 800*time.Millisecond, opts.ClipboardDelay)
	assert.Equal(t, 7*time.Second, opts.StepTimeout)
	assert.Zero(t, opts.InviteSettle)
	assert.Equal(t, []string{"Send invite", "Invite"}, opts.Copy.Confirm)
	assert.Equal(t, workflow.DefaultCopy().InviteButton, opts.Copy.InviteButton)
}

func TestNewTransferLock(t *testing.T) {
	cnf := &config.Configuration{Transfer: config.TransferConfig{StaleAfterSec: 600}}

	t.Run("in process", func(t *testing.T) {
		l := newTransferLock(cnf, nil)
		_, err := l.TryAcquire(context.Background(), "a@x.com", nil)
		assert.NoError(t, err)
	})

	t.Run("shared through redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client, err := redis_db.Connect(context.Background(), mr.Addr())
		require.NoError(t, err)
		defer client.Close()

		first := newTransferLock(cnf, client)
		second := newTransferLock(cnf, client)

		_, err = first.TryAcquire(context.Background(), "a@x.com", nil)
		require.NoError(t, err)
		_, err = second.TryAcquire(context.Background(), "b@x.com", nil)
		assert.ErrorIs(t, err, lock.ErrTransferInProgress)
	})
}

func TestSheetStore(t *testing.T) {
	clients := &googleauth.Clients{}

	cached := sheetStore(&config.Configuration{Sheet: config.SheetConfig{ID: "sheet-1", CacheTTLSec: 10}}, clients, nil)
	assert.IsType(t, &cache.SheetCache{}, cached)

	direct := sheetStore(&config.Configuration{Sheet: config.SheetConfig{ID: "sheet-1", CacheTTLSec: -1}}, clients, nil)
	assert.IsType(t, &sheets.Store{}, direct)
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "", redact(""))
	assert.Equal(t, redacted, redact("secret"))
}
