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

package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/thayfamily/checklive/internal/googleauth"
	"github.com/thayfamily/checklive/model"
)

// stateStore remembers the OAuth state values handed out by /auth until the callback
// consumes them.
type stateStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	issued map[string]time.Time
	now    func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{ttl: ttl, issued: make(map[string]time.Time), now: time.Now}
}

func (s *stateStore) issue() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for state, at := range s.issued {
		if now.Sub(at) > s.ttl {
			delete(s.issued, state)
		}
	}
	state := model.GenerateUUIDWithSuffix("oauth")
	s.issued[state] = now
	return state
}

// consume reports whether state was issued and is still fresh. A state is good once.
func (s *stateStore) consume(state string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	at, ok := s.issued[state]
	if !ok {
		return false
	}
	delete(s.issued, state)
	return s.now().Sub(at) <= s.ttl
}

// Auth redirects the operator to Google's consent screen.
func (a *Api) Auth(c *gin.Context) {
	if a.oauth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google oauth client is not configured"})
		return
	}
	c.Redirect(http.StatusFound, googleauth.AuthCodeURL(a.oauth, a.states.issue()))
}

// AuthCallback exchanges the authorization code and shows the refresh token to put in
// GOOGLE_REFRESH_TOKEN.
func (a *Api) AuthCallback(c *gin.Context) {
	if a.oauth == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "google oauth client is not configured"})
		return
	}
	if !a.states.consume(c.Query("state")) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown or expired state, start again from /auth"})
		return
	}

	token, err := googleauth.Exchange(c.Request.Context(), a.oauth, c.Query("code"))
	if err != nil {
		logrus.WithError(err).Error("oauth code exchange failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get tokens", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":       "Authentication successful. Store the refresh token as GOOGLE_REFRESH_TOKEN.",
		"refresh_token": token.RefreshToken,
		"expiry":        token.Expiry,
	})
}
