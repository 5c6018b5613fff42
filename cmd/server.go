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

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caddyserver/certmagic"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/thayfamily/checklive/api"
	"github.com/thayfamily/checklive/config"
	"github.com/thayfamily/checklive/internal/googleauth"
	"github.com/thayfamily/checklive/internal/tracing"
)

/*
serveTLS starts an HTTPS server with certificates managed by CertMagic.
If no domain is specified, the server will default to running on localhost.
*/
func serveTLS(ctx context.Context, r *gin.Engine, conf config.ServerConfig) error {
	certmagic.DefaultACME.Agreed = true
	certmagic.DefaultACME.Email = conf.Email
	cfg := certmagic.NewDefault()
	cfg.Storage = &certmagic.FileStorage{Path: "certmagic"}

	domains := []string{conf.Domain}
	if conf.Domain == "" {
		log.Println("No domain specified, defaulting to localhost")
		domains = []string{"localhost"}
	}

	if err := cfg.ManageSync(ctx, domains); err != nil {
		return err
	}

	server := &http.Server{
		Addr:      ":" + conf.Port,
		Handler:   r,
		TLSConfig: cfg.TLSConfig(),
	}

	log.Printf("Starting HTTPS server on %s\n", conf.Port)
	return serve(ctx, server, func() error { return server.ListenAndServeTLS("", "") })
}

// serve runs listen until ctx ends, then gives in-flight requests, a transfer included,
// a short grace period.
func serve(ctx context.Context, server *http.Server, listen func() error) error {
	errs := make(chan error, 1)
	go func() {
		errs <- listen()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func initializeRouter(app *checkliveInstance) *gin.Engine {
	opts := []api.Option{}
	if app.mailbox != nil {
		opts = append(opts, api.WithMailbox(app.mailbox))
	}
	if app.cnf.Google.ClientID != "" && app.cnf.Google.ClientSecret != "" {
		opts = append(opts, api.WithOAuth(googleauth.OAuthConfig(app.cnf.Google)))
	}
	return api.NewAPI(app.checklive, opts...).Router()
}

func startServer(ctx context.Context, router *gin.Engine, cfg config.ServerConfig) error {
	if cfg.SSL {
		return serveTLS(ctx, router, cfg)
	}
	log.Printf("Starting server on http://localhost:%s", cfg.Port)
	server := &http.Server{Addr: ":" + cfg.Port, Handler: router}
	return serve(ctx, server, server.ListenAndServe)
}

/*
serverCommands returns the Cobra command responsible for starting the checklive server.
*/
func serverCommands(app *checkliveInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "start",
		Short:       "start checklive server",
		Annotations: map[string]string{"service": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdown, err := tracing.Setup(ctx, app.cnf.ProjectName, app.cnf.Tracing.Endpoint)
			if err != nil {
				log.Fatal(err)
			}
			defer func() {
				flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(flushCtx); err != nil {
					log.Printf("flushing traces: %v", err)
				}
			}()

			router := initializeRouter(app)
			if err := startServer(ctx, router, app.cnf.Server); err != nil {
				log.Fatal(err)
			}
		},
	}

	return cmd
}
