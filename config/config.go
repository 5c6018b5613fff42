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

package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kelseyhightower/envconfig"

	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "3000"

	DEFAULT_PRIMARY_TABLE = "CANVAPRO"
	DEFAULT_ADMIN_TABLE   = "ADMIN FAM CANVA"
	DEFAULT_DEAD_MARKER   = "die"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	SSL       bool   `json:"ssl" envconfig:"CHECKLIVE_SERVER_SSL"`
	Secure    bool   `json:"secure" envconfig:"CHECKLIVE_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CHECKLIVE_SERVER_SECRET_KEY"`
	Domain    string `json:"domain" envconfig:"CHECKLIVE_SERVER_SSL_DOMAIN"`
	Email     string `json:"ssl_email" envconfig:"CHECKLIVE_SERVER_SSL_EMAIL"`
	Port      string `json:"port" envconfig:"CHECKLIVE_SERVER_PORT"`
}

// GoogleConfig holds the OAuth client used for both the spreadsheet and the mailbox.
// When ServiceAccountFile is set the spreadsheet is accessed with the service account
// instead of the refresh token.
type GoogleConfig struct {
	ClientID           string `json:"client_id" envconfig:"GOOGLE_CLIENT_ID"`
	ClientSecret       string `json:"client_secret" envconfig:"GOOGLE_CLIENT_SECRET"`
	RefreshToken       string `json:"refresh_token" envconfig:"GOOGLE_REFRESH_TOKEN"`
	RedirectURL        string `json:"redirect_url" envconfig:"GOOGLE_REDIRECT_URI"`
	ServiceAccountFile string `json:"service_account_file" envconfig:"GOOGLE_SERVICE_ACCOUNT_FILE"`
}

type SheetConfig struct {
	ID                string `json:"id" envconfig:"SHEET_ID"`
	PrimaryTable      string `json:"primary_table" envconfig:"CHECKLIVE_SHEET_PRIMARY_TABLE"`
	AdminTable        string `json:"admin_table" envconfig:"CHECKLIVE_SHEET_ADMIN_TABLE"`
	PrimaryHeaderRows int    `json:"primary_header_rows"`
	AdminHeaderRows   int    `json:"admin_header_rows"`
	DeadMarker        string `json:"dead_marker" envconfig:"CHECKLIVE_SHEET_DEAD_MARKER"`
	// CacheTTLSec keeps fetched tables for a few seconds to spare the Sheets quota.
	// A negative value turns the cache off.
	CacheTTLSec int `json:"cache_ttl_sec" envconfig:"CHECKLIVE_SHEET_CACHE_TTL_SEC"`
}

type MailboxConfig struct {
	Sender         string `json:"sender" envconfig:"CHECKLIVE_MAILBOX_SENDER"`
	SubjectKeyword string `json:"subject_keyword"`
	SubjectPattern string `json:"subject_pattern"`
	Window         string `json:"window"`
	MaxResults     int64  `json:"max_results"`
}

type BrowserConfig struct {
	Executable     string   `json:"executable" envconfig:"CHROME_BIN"`
	CandidatePaths []string `json:"candidate_paths"`
	Headful        bool     `json:"headful" envconfig:"CHECKLIVE_BROWSER_HEADFUL"`
	ExtraFlags     []string `json:"extra_flags"`
	UserAgent      string   `json:"user_agent"`
	ScreenshotDir  string   `json:"screenshot_dir" envconfig:"CHECKLIVE_BROWSER_SCREENSHOT_DIR"`
}

// AutomationConfig tunes the remote UI workflow. Durations are in milliseconds so the
// JSON file stays flat; zero means "use the workflow default".
type AutomationConfig struct {
	LoginURL             string            `json:"login_url"`
	PeopleURL            string            `json:"people_url"`
	Origin               string            `json:"origin"`
	InviteLinkPattern    string            `json:"invite_link_pattern"`
	InviteAttempts       int               `json:"invite_attempts"`
	VerificationAttempts int               `json:"verification_attempts"`
	VerificationDelayMs  int               `json:"verification_delay_ms"`
	VerificationGraceMs  int               `json:"verification_grace_ms"`
	NavigationTimeoutMs  int               `json:"navigation_timeout_ms"`
	StepTimeoutMs        int               `json:"step_timeout_ms"`
	LookupTimeoutMs      int               `json:"lookup_timeout_ms"`
	SettleDelayMs        int               `json:"settle_delay_ms"`
	InviteSettleMs       int               `json:"invite_settle_ms"`
	ClipboardDelayMs     int               `json:"clipboard_delay_ms"`
	Copy                 map[string]string `json:"ui_copy"`
}

type TransferConfig struct {
	StaleAfterSec int `json:"stale_after_sec" envconfig:"CHECKLIVE_TRANSFER_STALE_AFTER_SEC"`
	BudgetSec     int `json:"budget_sec" envconfig:"CHECKLIVE_TRANSFER_BUDGET_SEC"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"CHECKLIVE_REDIS_DNS"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CHECKLIVE_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CHECKLIVE_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CHECKLIVE_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

// TracingConfig points span export at an OTLP/HTTP collector. Empty disables export.
type TracingConfig struct {
	Endpoint string `json:"otlp_endpoint" envconfig:"CHECKLIVE_OTLP_ENDPOINT"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url" envconfig:"CHECKLIVE_SLACK_WEBHOOK_URL"`
}

type Notification struct {
	Slack SlackWebhook `json:"slack"`
}

type Configuration struct {
	ProjectName  string           `json:"project_name" envconfig:"CHECKLIVE_PROJECT_NAME"`
	Server       ServerConfig     `json:"server"`
	Google       GoogleConfig     `json:"google"`
	Sheet        SheetConfig      `json:"sheet"`
	Mailbox      MailboxConfig    `json:"mailbox"`
	Browser      BrowserConfig    `json:"browser"`
	Automation   AutomationConfig `json:"automation"`
	Transfer     TransferConfig   `json:"transfer"`
	Redis        RedisConfig      `json:"redis"`
	Notification Notification     `json:"notification"`
	RateLimit    RateLimitConfig  `json:"rate_limit"`
	Tracing      TracingConfig    `json:"tracing"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer f.Close()
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}

	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("checklive", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called checklive.json with your config ❌")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		cnf.ProjectName = "checklive"
	}

	cnf.Sheet.ID = strings.TrimSpace(cnf.Sheet.ID)
	if cnf.Sheet.ID == "" {
		log.Println("Error: Sheet ID is empty. It's a required field.")
		return errors.New("sheet id is required")
	}

	if cnf.Google.ServiceAccountFile == "" && (cnf.Google.ClientID == "" || cnf.Google.ClientSecret == "") {
		log.Println("Error: Google OAuth client is not configured.")
		return errors.New("google client id and secret are required")
	}

	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Google.RedirectURL == "" {
		cnf.Google.RedirectURL = "http://localhost:" + cnf.Server.Port + "/auth/callback"
	}

	cnf.addSheetDefaults()
	cnf.addMailboxDefaults()

	if cnf.Transfer.StaleAfterSec <= 0 {
		cnf.Transfer.StaleAfterSec = 600
	}
	if cnf.Transfer.BudgetSec <= 0 {
		cnf.Transfer.BudgetSec = 300
	}

	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func (cnf *Configuration) addSheetDefaults() {
	if cnf.Sheet.PrimaryTable == "" {
		cnf.Sheet.PrimaryTable = DEFAULT_PRIMARY_TABLE
	}
	if cnf.Sheet.AdminTable == "" {
		cnf.Sheet.AdminTable = DEFAULT_ADMIN_TABLE
	}
	if cnf.Sheet.PrimaryHeaderRows <= 0 {
		cnf.Sheet.PrimaryHeaderRows = 2
	}
	if cnf.Sheet.AdminHeaderRows <= 0 {
		cnf.Sheet.AdminHeaderRows = 1
	}
	if cnf.Sheet.DeadMarker == "" {
		cnf.Sheet.DeadMarker = DEFAULT_DEAD_MARKER
	}
	if cnf.Sheet.CacheTTLSec == 0 {
		cnf.Sheet.CacheTTLSec = 10
	}
}

func (cnf *Configuration) addMailboxDefaults() {
	if cnf.Mailbox.Sender == "" {
		cnf.Mailbox.Sender = "canva.com"
	}
	if cnf.Mailbox.SubjectKeyword == "" {
		cnf.Mailbox.SubjectKeyword = "Your Canva code"
	}
	if cnf.Mailbox.SubjectPattern == "" {
		cnf.Mailbox.SubjectPattern = `Your Canva code is (\d{6})`
	}
	if cnf.Mailbox.Window == "" {
		cnf.Mailbox.Window = "1h"
	}
	if cnf.Mailbox.MaxResults <= 0 {
		cnf.Mailbox.MaxResults = 5
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
