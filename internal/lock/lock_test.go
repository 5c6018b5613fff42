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

package lock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type closer struct{ n atomic.Int32 }

func (c *closer) Close() error {
	c.n.Add(1)
	return nil
}

func TestTransferLock_SingleSlot(t *testing.T) {
	l := New(10*time.Minute, nil)
	ctx := context.Background()

	lease, err := l.TryAcquire(ctx, "a@x.com", nil)
	require.NoError(t, err)

	_, err = l.TryAcquire(ctx, "b@x.com", nil)
	assert.ErrorIs(t, err, ErrTransferInProgress)

	holder, held := l.Status()
	assert.True(t, held)
	assert.Equal(t, "a@x.com", holder.Owner)

	l.Release(ctx, lease)
	_, held = l.Status()
	assert.False(t, held)

	_, err = l.TryAcquire(ctx, "b@x.com", nil)
	assert.NoError(t, err)
}

func TestTransferLock_ConcurrentAcquireAdmitsOne(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	l := New(10*time.Minute, nil)
	var wg sync.WaitGroup
	var admitted, rejected atomic.Int32
	start := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := l.TryAcquire(context.Background(), "x@x.com", nil)
			switch {
			case err == nil:
				admitted.Add(1)
			case errors.Is(err, ErrTransferInProgress):
				rejected.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), admitted.Load())
	assert.Equal(t, int32(7), rejected.Load())
}

func TestTransferLock_ForceClearIfStale(t *testing.T) {
	l := New(10*time.Minute, nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	old, err := l.TryAcquire(ctx, "old@x.com", cancel)
	require.NoError(t, err)
	browser := &closer{}
	old.Attach(browser)

	now = now.Add(9 * time.Minute)
	assert.False(t, l.ForceClearIfStale(ctx))

	now = now.Add(2 * time.Minute)
	assert.True(t, l.ForceClearIfStale(ctx))
	assert.ErrorIs(t, runCtx.Err(), context.Canceled)
	assert.Equal(t, int32(1), browser.n.Load())

	fresh, err := l.TryAcquire(ctx, "new@x.com", nil)
	require.NoError(t, err)

	// the abandoned run finishing late must not free the new holder
	l.Release(ctx, old)
	holder, held := l.Status()
	assert.True(t, held)
	assert.Equal(t, "new@x.com", holder.Owner)

	l.Release(ctx, fresh)
	_, held = l.Status()
	assert.False(t, held)
}

func TestLease_AttachAfterClearClosesImmediately(t *testing.T) {
	l := New(time.Minute, nil)
	now := time.Now()
	l.now = func() time.Time { return now }

	lease, err := l.TryAcquire(context.Background(), "a@x.com", nil)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	require.True(t, l.ForceClearIfStale(context.Background()))

	late := &closer{}
	lease.Attach(late)
	assert.Equal(t, int32(1), late.n.Load())
}

func TestTransferLock_GuardAcrossProcesses(t *testing.T) {
	mr := miniredis.RunT(t)
	newClient := func() *redis.Client {
		c := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = c.Close() })
		return c
	}
	ctx := context.Background()

	first := New(10*time.Minute, NewGuard(newClient(), ""))
	second := New(10*time.Minute, NewGuard(newClient(), ""))

	lease, err := first.TryAcquire(ctx, "a@x.com", nil)
	require.NoError(t, err)
	assert.True(t, mr.Exists(DefaultGuardKey))
	assert.Equal(t, 10*time.Minute, mr.TTL(DefaultGuardKey))

	_, err = second.TryAcquire(ctx, "b@x.com", nil)
	assert.ErrorIs(t, err, ErrTransferInProgress)

	first.Release(ctx, lease)
	assert.False(t, mr.Exists(DefaultGuardKey))

	_, err = second.TryAcquire(ctx, "b@x.com", nil)
	assert.NoError(t, err)
}

func TestTransferLock_CurrentSeesOtherProcess(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	first := New(10*time.Minute, NewGuard(client, ""))
	second := New(10*time.Minute, NewGuard(client, ""))

	holder, busy, err := second.Current(ctx)
	require.NoError(t, err)
	assert.False(t, busy)
	assert.Equal(t, Holder{}, holder)

	lease, err := first.TryAcquire(ctx, "a@x.com", nil)
	require.NoError(t, err)

	holder, busy, err = second.Current(ctx)
	require.NoError(t, err)
	assert.True(t, busy)
	assert.True(t, holder.Remote)
	assert.Equal(t, "a@x.com", holder.Owner)
	assert.True(t, lease.Started.Equal(holder.Started))

	local, busy, err := first.Current(ctx)
	require.NoError(t, err)
	assert.True(t, busy)
	assert.False(t, local.Remote)

	first.Release(ctx, lease)
	_, busy, err = second.Current(ctx)
	require.NoError(t, err)
	assert.False(t, busy)
}

func TestTransferLock_CurrentWithUnreadableGuard(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	require.NoError(t, mr.Set(DefaultGuardKey, "dead-process"))

	holder, busy, err := New(time.Minute, NewGuard(client, "")).Current(context.Background())
	require.NoError(t, err)
	assert.True(t, busy)
	assert.True(t, holder.Remote)
	assert.Empty(t, holder.Owner)
}

func TestTransferLock_GuardExpires(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	crashed := NewGuard(client, "")
	ok, err := crashed.Acquire(ctx, "dead-process", 10*time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	l := New(10*time.Minute, NewGuard(client, ""))
	_, err = l.TryAcquire(ctx, "a@x.com", nil)
	assert.ErrorIs(t, err, ErrTransferInProgress)

	mr.FastForward(11 * time.Minute)
	_, err = l.TryAcquire(ctx, "a@x.com", nil)
	assert.NoError(t, err)
}

func TestTransferLock_GuardError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()
	mr.Close()

	l := New(time.Minute, NewGuard(client, ""))
	_, err := l.TryAcquire(context.Background(), "a@x.com", nil)

	assert.ErrorContains(t, err, "transfer guard")
	_, held := l.Status()
	assert.False(t, held)
}

func TestGuard_Release(t *testing.T) {
	db, mock := redismock.NewClientMock()
	g := NewGuard(db, "test-key")

	mock.ExpectEval(unlockScript, []string{"test-key"}, "token-1").SetVal(int64(1))
	assert.NoError(t, g.Release(context.Background(), "token-1"))

	mock.ExpectEval(unlockScript, []string{"test-key"}, "token-2").SetVal(int64(0))
	assert.ErrorIs(t, g.Release(context.Background(), "token-2"), ErrNotHolder)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGuard_Holder(t *testing.T) {
	db, mock := redismock.NewClientMock()
	g := NewGuard(db, "test-key")

	mock.ExpectGet("test-key").RedisNil()
	holder, err := g.Holder(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, holder)

	mock.ExpectGet("test-key").SetVal("token-1")
	holder, err = g.Holder(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "token-1", holder)

	assert.NoError(t, mock.ExpectationsWereMet())
}
