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
	"fmt"
	"log"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thayfamily/checklive"
	"github.com/thayfamily/checklive/config"
	"github.com/thayfamily/checklive/internal/browser"
	"github.com/thayfamily/checklive/internal/cache"
	"github.com/thayfamily/checklive/internal/googleauth"
	"github.com/thayfamily/checklive/internal/lock"
	"github.com/thayfamily/checklive/internal/mailbox"
	"github.com/thayfamily/checklive/internal/notification"
	redis_db "github.com/thayfamily/checklive/internal/redis-db"
	"github.com/thayfamily/checklive/internal/sheets"
	"github.com/thayfamily/checklive/internal/workflow"
)

// Checklive represents the CLI application, encapsulating the root Cobra command.
type Checklive struct {
	cmd *cobra.Command
}

// checkliveInstance holds what the subcommands share once the configuration is loaded.
type checkliveInstance struct {
	checklive *checklive.Checklive
	mailbox   *mailbox.Client
	cnf       *config.Configuration
}

func recoverPanic() {
	if rec := recover(); rec != nil {
		logrus.Error(rec)
		os.Exit(1)
	}
}

// preRun loads the configuration and, for commands that need it, builds the service.
func preRun(app *checkliveInstance, configFile *string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		err := config.InitConfig(*configFile)
		if err != nil {
			if cmd.Annotations["config"] != "optional" {
				log.Fatal("error loading config ", err)
			}
			logrus.WithError(err).Warn("config not loaded, using defaults")
			app.cnf = &config.Configuration{}
			return nil
		}

		cnf, err := config.Fetch()
		if err != nil {
			return err
		}
		app.cnf = cnf

		if cmd.Annotations["service"] != "true" {
			return nil
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()
		if err := setupChecklive(ctx, app); err != nil {
			notification.NotifyError(err)
			log.Fatal(err)
		}
		return nil
	}
}

// setupChecklive wires the Google clients, the browser workflow and the transfer lock.
func setupChecklive(ctx context.Context, app *checkliveInstance) error {
	cnf := app.cnf

	clients, err := googleauth.NewClients(ctx, cnf.Google)
	if err != nil {
		return fmt.Errorf("error creating google clients: %v", err)
	}

	var codes workflow.CodeSource
	if clients.Gmail != nil {
		app.mailbox, err = mailbox.New(clients.Gmail, cnf.Mailbox)
		if err != nil {
			return fmt.Errorf("error creating mailbox: %v", err)
		}
		codes = app.mailbox
	} else {
		logrus.Warn("no refresh token configured, login verification codes cannot be read")
	}

	launcher := browser.NewRodLauncher(browser.Options{
		Executable:        cnf.Browser.Executable,
		Candidates:        cnf.Browser.CandidatePaths,
		Headless:          !cnf.Browser.Headful,
		ExtraFlags:        cnf.Browser.ExtraFlags,
		UserAgent:         cnf.Browser.UserAgent,
		ScreenshotDir:     cnf.Browser.ScreenshotDir,
		NavigationTimeout: millis(cnf.Automation.NavigationTimeoutMs),
	})

	flow, err := workflow.New(launcher, codes, workflowOptions(cnf.Automation))
	if err != nil {
		return fmt.Errorf("error creating workflow: %v", err)
	}

	var client redis.UniversalClient
	if cnf.Redis.Dns != "" {
		client, err = redis_db.Connect(ctx, cnf.Redis.Dns)
		if err != nil {
			return fmt.Errorf("error connecting to redis: %v", err)
		}
		logrus.Info("transfer lock and sheet cache are shared through redis")
	}

	c, err := checklive.NewChecklive(sheetStore(cnf, clients, client), flow, newTransferLock(cnf, client))
	if err != nil {
		return fmt.Errorf("error creating checklive: %v", err)
	}
	app.checklive = c
	return nil
}

func workflowOptions(a config.AutomationConfig) workflow.Options {
	return workflow.Options{
		LoginURL:             a.LoginURL,
		PeopleURL:            a.PeopleURL,
		Origin:               a.Origin,
		InviteLinkPattern:    a.InviteLinkPattern,
		InviteAttempts:       a.InviteAttempts,
		VerificationAttempts: a.VerificationAttempts,
		VerificationDelay:    millis(a.VerificationDelayMs),
		VerificationGrace:    millis(a.VerificationGraceMs),
		StepTimeout:          millis(a.StepTimeoutMs),
		LookupTimeout:        millis(a.LookupTimeoutMs),
		SettleDelay:          millis(a.SettleDelayMs),
		InviteSettle:         millis(a.InviteSettleMs),
		ClipboardDelay:       millis(a.ClipboardDelayMs),
		Copy:                 workflow.DefaultCopy().Override(a.Copy),
	}
}

// newTransferLock mirrors the transfer slot into Redis when a client is given, so
// several instances against one sheet exclude each other.
func newTransferLock(cnf *config.Configuration, client redis.UniversalClient) *lock.TransferLock {
	stale := time.Duration(cnf.Transfer.StaleAfterSec) * time.Second
	if client == nil {
		return lock.New(stale, nil)
	}
	return lock.New(stale, lock.NewGuard(client, lock.DefaultGuardKey))
}

func sheetStore(cnf *config.Configuration, clients *googleauth.Clients, client redis.UniversalClient) checklive.SheetStore {
	store := sheets.New(clients.Sheets, cnf.Sheet.ID)
	if cnf.Sheet.CacheTTLSec <= 0 {
		return store
	}
	return cache.NewSheetCache(store, client, cnf.Sheet.ID, time.Duration(cnf.Sheet.CacheTTLSec)*time.Second)
}

func millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// NewCLI creates the command-line interface for checklive.
func NewCLI() *Checklive {
	var configFile string
	app := &checkliveInstance{}

	var rootCmd = &cobra.Command{
		Use:   "checklive",
		Short: "Subscription team status checks and team transfers",
		Run:   func(cmd *cobra.Command, args []string) {},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "./checklive.json", "Configuration file for checklive")
	rootCmd.PersistentPreRunE = preRun(app, &configFile)

	rootCmd.AddCommand(serverCommands(app))
	rootCmd.AddCommand(checkCommands(app))
	rootCmd.AddCommand(browserCommands(app))
	rootCmd.AddCommand(configCommands(app))

	return &Checklive{cmd: rootCmd}
}

func (c Checklive) executeCLI() {
	if err := c.cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	defer recoverPanic()

	cli := NewCLI()
	cli.executeCLI()
}
