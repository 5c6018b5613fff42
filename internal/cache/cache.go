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
	"time"

	"github.com/go-redis/cache/v9"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// cacheSize is the number of tables kept in the local TinyLFU cache. A deployment reads
// two tables, so this only needs headroom.
const cacheSize = 64

// SheetStore is the spreadsheet access the cache sits in front of.
type SheetStore interface {
	Rows(ctx context.Context, table string) ([][]string, error)
	UpdateCell(ctx context.Context, table, cell, value string) error
}

// SheetCache serves table reads from memory, and from Redis when a client is given,
// for a short TTL. A write through it drops the cached copy of that table.
type SheetCache struct {
	next   SheetStore
	cache  *cache.Cache
	ttl    time.Duration
	prefix string
}

// NewSheetCache wraps next. client may be nil for a process-local cache. namespace
// keeps two spreadsheets sharing one Redis apart.
func NewSheetCache(next SheetStore, client redis.UniversalClient, namespace string, ttl time.Duration) *SheetCache {
	opts := &cache.Options{
		LocalCache: cache.NewTinyLFU(cacheSize, ttl),
	}
	if client != nil {
		opts.Redis = client
	}
	return &SheetCache{
		next:   next,
		cache:  cache.New(opts),
		ttl:    ttl,
		prefix: "checklive:rows:" + namespace + ":",
	}
}

func (s *SheetCache) key(table string) string {
	return s.prefix + table
}

// Rows returns the cached table or loads it once, even under concurrent callers.
func (s *SheetCache) Rows(ctx context.Context, table string) ([][]string, error) {
	var rows [][]string
	err := s.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   s.key(table),
		Value: &rows,
		TTL:   s.ttl,
		Do: func(*cache.Item) (interface{}, error) {
			return s.next.Rows(ctx, table)
		},
	})
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateCell writes through to the sheet. Once the write has landed a failed
// invalidation is only logged; the stale copy expires with the TTL.
func (s *SheetCache) UpdateCell(ctx context.Context, table, cell, value string) error {
	if err := s.next.UpdateCell(ctx, table, cell, value); err != nil {
		return err
	}
	if err := s.Invalidate(ctx, table); err != nil {
		logrus.WithError(err).WithField("table", table).Warn("sheet updated but cached rows were not dropped")
	}
	return nil
}

// Invalidate drops the cached copy of table.
func (s *SheetCache) Invalidate(ctx context.Context, table string) error {
	err := s.cache.Delete(ctx, s.key(table))
	if errors.Is(err, cache.ErrCacheMiss) {
		return nil
	}
	return err
}
