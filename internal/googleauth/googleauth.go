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

// Package googleauth builds the OAuth client and the Sheets and Gmail services that
// share it.
package googleauth

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/thayfamily/checklive/config"
)

var ErrNoCredentials = errors.New("no google credentials configured: set a refresh token or a service account file")

// Scopes requested on the consent screen. The refresh token printed by the callback
// covers both the spreadsheet and the mailbox.
var Scopes = []string{
	sheets.SpreadsheetsScope,
	gmail.GmailReadonlyScope,
	gmail.MailGoogleComScope,
}

func OAuthConfig(cfg config.GoogleConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}
}

// AuthCodeURL forces the consent prompt so Google hands out a refresh token every time.
func AuthCodeURL(conf *oauth2.Config, state string) string {
	return conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

func Exchange(ctx context.Context, conf *oauth2.Config, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, errors.New("no code provided")
	}
	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange auth code: %w", err)
	}
	return tok, nil
}

// Clients are the Google services the lookups and the workflow need. Gmail is nil when
// no refresh token is configured.
type Clients struct {
	Sheets *sheets.Service
	Gmail  *gmail.Service
}

// NewClients builds the services from configuration. The spreadsheet prefers the service
// account when one is configured; the mailbox always uses the refresh token. extra is
// appended to every service's options.
func NewClients(ctx context.Context, cfg config.GoogleConfig, extra ...option.ClientOption) (*Clients, error) {
	var userOpts []option.ClientOption
	if cfg.RefreshToken != "" {
		ts := OAuthConfig(cfg).TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
		userOpts = append(userOpts, option.WithTokenSource(ts))
	}

	sheetOpts := userOpts
	if cfg.ServiceAccountFile != "" {
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds, err := google.CredentialsFromJSON(ctx, data, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("parse service account file: %w", err)
		}
		sheetOpts = []option.ClientOption{option.WithCredentials(creds)}
	}
	if len(sheetOpts) == 0 {
		return nil, ErrNoCredentials
	}

	c := &Clients{}
	var err error
	c.Sheets, err = sheets.NewService(ctx, append(sheetOpts, extra...)...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	if len(userOpts) > 0 {
		c.Gmail, err = gmail.NewService(ctx, append(userOpts, extra...)...)
		if err != nil {
			return nil, fmt.Errorf("gmail service: %w", err)
		}
	}
	return c, nil
}
