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
package cache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/thayfamily/checklive/mocks"
)

func rows() [][]string {
	return [][]string{
		{"Options", "Order", "Email"},
		{"1 year", "DH001", "a@x.com"},
	}
}

func TestRowsLoadsOnce(t *testing.T) {
	store := &mocks.MockSheetStore{}
	store.On("Rows", mock.Anything, "CANVAPRO").Return(rows(), nil).Once()
	c := NewSheetCache(store, nil, "sheet-1", time.Minute)

	for i := 0; i < 3; i++ {
		got, err := c.Rows(context.Background(), "CANVAPRO")
		require.NoError(t, err)
		assert.Equal(t, rows(), got)
	}
	store.AssertNumberOfCalls(t, "Rows", 1)
}

func TestRowsConcurrentCallersShareLoad(t *testing.T) {
	store := &mocks.MockSheetStore{}
	store.On("Rows", mock.Anything, "CANVAPRO").
		Run(func(mock.Arguments) { time.Sleep(20 * time.Millisecond) }).
		Return(rows(), nil)
	c := NewSheetCache(store, nil, "sheet-1", time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Rows(context.Background(), "CANVAPRO")
			assert.NoError(t, err)
			assert.Equal(t, rows(), got)
		}()
	}
	wg.Wait()
	store.AssertNumberOfCalls(t, "Rows", 1)
}

func TestRowsErrorIsNotCached(t *testing.T) {
	store := &mocks.MockSheetStore{}
	store.On("Rows", mock.Anything, "CANVAPRO").Return(nil, errors.New("googleapi: Error 503")).Once()
	store.On("Rows", mock.Anything, "CANVAPRO").Return(rows(), nil).Once()
	c := NewSheetCache(store, nil, "sheet-1", time.Minute)

	_, err := c.Rows(context.Background(), "CANVAPRO")
	assert.Error(t, err)

	got, err := c.Rows(context.Background(), "CANVAPRO")
	require.NoError(t, err)
	assert.Equal(t, rows(), got)
}

func TestUpdateCellInvalidates(t *testing.T) {
	updated := rows()
	updated[1] = append(updated[1], "", "", "", "T9")

	store := &mocks.MockSheetStore{}
	store.On("Rows", mock.Anything, "CANVAPRO").Return(rows(), nil).Once()
	store.On("Rows", mock.Anything, "CANVAPRO").Return(updated, nil).Once()
	store.On("UpdateCell", mock.Anything, "CANVAPRO", "G2", "T9").Return(nil)
	c := NewSheetCache(store, nil, "sheet-1", time.Minute)

	_, err := c.Rows(context.Background(), "CANVAPRO")
	require.NoError(t, err)
	require.NoError(t, c.UpdateCell(context.Background(), "CANVAPRO", "G2", "T9"))

	got, err := c.Rows(context.Background(), "CANVAPRO")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestUpdateCellFailureKeepsCache(t *testing.T) {
	store := &mocks.MockSheetStore{}
	store.On("Rows", mock.Anything, "CANVAPRO").Return(rows(), nil).Once()
	store.On("UpdateCell", mock.Anything, "CANVAPRO", "G2", "T9").Return(errors.New("quota"))
	c := NewSheetCache(store, nil, "sheet-1", time.Minute)

	_, err := c.Rows(context.Background(), "CANVAPRO")
	require.NoError(t, err)
	assert.Error(t, c.UpdateCell(context.Background(), "CANVAPRO", "G2", "T9"))

	_, err = c.Rows(context.Background(), "CANVAPRO")
	require.NoError(t, err)
	store.AssertNumberOfCalls(t, "Rows", 1)
}

func TestUpdateCellSucceedsWhenInvalidationFails(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := &mocks.MockSheetStore{}
	store.On("Rows", mock.Anything, "CANVAPRO").Return(rows(), nil).Once()
	store.On("UpdateCell", mock.Anything, "CANVAPRO", "G2", "T9").Return(nil).Once()
	c := NewSheetCache(store, client, "sheet-1", time.Minute)

	_, err := c.Rows(context.Background(), "CANVAPRO")
	require.NoError(t, err)

	mr.SetError("ERR redis unavailable")
	defer mr.SetError("")

	assert.NoError(t, c.UpdateCell(context.Background(), "CANVAPRO", "G2", "T9"))
	store.AssertExpectations(t)
}

func TestRowsSharedThroughRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	first := &mocks.MockSheetStore{}
	first.On("Rows", mock.Anything, "CANVAPRO").Return(rows(), nil).Once()
	second := &mocks.MockSheetStore{}

	_, err := NewSheetCache(first, client, "sheet-1", time.Minute).Rows(context.Background(), "CANVAPRO")
	require.NoError(t, err)
	assert.True(t, mr.Exists("checklive:rows:sheet-1:CANVAPRO"))

	got, err := NewSheetCache(second, client, "sheet-1", time.Minute).Rows(context.Background(), "CANVAPRO")
	require.NoError(t, err)
	assert.Equal(t, rows(), got)
	second.AssertNotCalled(t, "Rows", mock.Anything, mock.Anything)
}
