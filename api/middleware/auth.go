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

package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/thayfamily/checklive/config"
)

const (
	KeyHeader = "X-Checklive-Key"
	// KeyQuery lets an operator open a protected page, such as the OAuth consent
	// redirect, straight from the browser address bar.
	KeyQuery = "key"
)

// SecretKeyAuthMiddleware guards operator routes with the server secret key. When secure
// mode is off every request passes.
//
// Responses:
// - 401 Unauthorized: When the key is missing or does not match.
// - 500 Internal Server Error: When secure mode is on but no secret key is configured.
func SecretKeyAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		conf, err := config.Fetch()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Secret key is not configured"})
			return
		}
		if !conf.Server.Secure {
			c.Next()
			return
		}

		secretKey := conf.Server.SecretKey
		if secretKey == "" {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Secret key is not configured"})
			return
		}

		clientSecret := extractKey(c)
		if clientSecret == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authentication required. Use " + KeyHeader + " header"})
			return
		}

		if !secureCompare(secretKey, clientSecret) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid secret key"})
			return
		}

		c.Next()
	}
}

// extractKey retrieves the key from the X-Checklive-Key header, falling back to the
// key query parameter.
func extractKey(c *gin.Context) string {
	if key := strings.TrimSpace(c.GetHeader(KeyHeader)); key != "" {
		return key
	}
	return strings.TrimSpace(c.Query(KeyQuery))
}
