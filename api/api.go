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
	"context"
	"embed"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/oauth2"

	"github.com/thayfamily/checklive"
	"github.com/thayfamily/checklive/api/middleware"
	"github.com/thayfamily/checklive/config"
	"github.com/thayfamily/checklive/internal/browser"
	"github.com/thayfamily/checklive/internal/mailbox"
)

//go:embed static/index.html
var static embed.FS

// MailboxLister lists recent messages so an operator can confirm Gmail access.
type MailboxLister interface {
	Recent(ctx context.Context, n int64) ([]mailbox.Summary, error)
}

type Api struct {
	checklive *checklive.Checklive
	router    *gin.Engine
	mailbox   MailboxLister
	oauth     *oauth2.Config
	states    *stateStore
	locate    func() browser.Resolution
}

type Option func(*Api)

func WithMailbox(m MailboxLister) Option {
	return func(a *Api) {
		a.mailbox = m
	}
}

// WithOAuth enables the /auth consent flow used to mint a refresh token.
func WithOAuth(conf *oauth2.Config) Option {
	return func(a *Api) {
		a.oauth = conf
	}
}

func WithBrowserLocator(fn func() browser.Resolution) Option {
	return func(a *Api) {
		a.locate = fn
	}
}

func (a *Api) Router() *gin.Engine {
	router := a.router
	router.POST("/check-status", a.CheckStatus)
	router.POST("/transfer-team", a.TransferTeam)

	// Google redirects here without our key; the state parameter authenticates it.
	router.GET("/auth/callback", a.AuthCallback)

	operator := router.Group("/", middleware.SecretKeyAuthMiddleware())
	operator.GET("/auth", a.Auth)
	operator.GET("/transfer/status", a.TransferStatus)
	operator.GET("/mailbox/recent", a.RecentMail)
	operator.GET("/debug/browser", a.DebugBrowser)
	return a.router
}

func NewAPI(c *checklive.Checklive, opts ...Option) *Api {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(otelgin.Middleware(conf.ProjectName))
	r.Use(middleware.RateLimitMiddleware(conf))

	page, _ := static.ReadFile("static/index.html")
	r.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", page)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})

	a := &Api{
		checklive: c,
		router:    r,
		states:    newStateStore(10 * time.Minute),
		locate: func() browser.Resolution {
			return browser.Locate(conf.Browser.Executable, conf.Browser.CandidatePaths)
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}
