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
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultGuardKey = "checklive:transfer"

var ErrNotHolder = errors.New("transfer guard expired or held by another process")

const unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"

// Guard mirrors the transfer slot into a Redis key so processes sharing a spreadsheet
// exclude each other. The key expires on its own after the staleness timeout.
type Guard struct {
	client redis.UniversalClient
	key    string
}

func NewGuard(client redis.UniversalClient, key string) *Guard {
	if key == "" {
		key = DefaultGuardKey
	}
	return &Guard{client: client, key: key}
}

func (g *Guard) Acquire(ctx context.Context, token string, ttl time.Duration) (bool, error) {
	return g.client.SetNX(ctx, g.key, token, ttl).Result()
}

// Release deletes the key only if token still owns it.
func (g *Guard) Release(ctx context.Context, token string) error {
	result, err := g.client.Eval(ctx, unlockScript, []string{g.key}, token).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return ErrNotHolder
	}
	return nil
}

// Holder returns the token currently owning the key, or "" when free.
func (g *Guard) Holder(ctx context.Context) (string, error) {
	v, err := g.client.Get(ctx, g.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, err
}
