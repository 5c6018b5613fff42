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

package redis_db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 500 * time.Millisecond

// ParseDSN turns the configured Redis address into client options. It accepts a bare
// host:port, a redis:// or rediss:// URL, and the password-only form redis://secret@host.
func ParseDSN(dsn string) (*redis.Options, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("redis dns is empty")
	}

	// docker style addresses such as redis:6379
	if !strings.Contains(dsn, "//") && !strings.Contains(dsn, "@") {
		return &redis.Options{Addr: dsn}, nil
	}

	for _, scheme := range []string{"redis://", "rediss://"} {
		rest, ok := strings.CutPrefix(dsn, scheme)
		if !ok {
			continue
		}
		auth, host, hasAuth := strings.Cut(rest, "@")
		if hasAuth && !strings.Contains(auth, ":") {
			dsn = fmt.Sprintf("%s:%s@%s", scheme, auth, host)
		}
	}

	opts, err := redis.ParseURL(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse redis dns: %w", err)
	}
	return opts, nil
}

// Connect opens a client and checks it answers a ping.
func Connect(ctx context.Context, dsn string) (redis.UniversalClient, error) {
	opts, err := ParseDSN(dsn)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	pctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return client, nil
}
