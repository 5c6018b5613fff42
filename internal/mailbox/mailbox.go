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

// Package mailbox reads login verification codes from the operator's Gmail inbox.
package mailbox

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"google.golang.org/api/gmail/v1"

	"github.com/thayfamily/checklive/config"
)

const user = "me"

var bodyCode = regexp.MustCompile(`\b\d{6}\b`)

type Client struct {
	svc     *gmail.Service
	cfg     config.MailboxConfig
	subject *regexp.Regexp
}

// Summary is one message as listed by the mailbox check.
type Summary struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    string `json:"from"`
}

func New(svc *gmail.Service, cfg config.MailboxConfig) (*Client, error) {
	subject, err := regexp.Compile(cfg.SubjectPattern)
	if err != nil {
		return nil, fmt.Errorf("mailbox subject pattern: %w", err)
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	return &Client{svc: svc, cfg: cfg, subject: subject}, nil
}

// Query is the Gmail search used to find verification mails.
func (c *Client) Query() string {
	return fmt.Sprintf(`from:%s subject:"%s" newer_than:%s`, c.cfg.Sender, c.cfg.SubjectKeyword, c.cfg.Window)
}

// VerificationCode returns the newest code in the inbox, or "" when no recent message
// carries one. It does not retry.
func (c *Client) VerificationCode(ctx context.Context, account string) (string, error) {
	log := logrus.WithField("account", account)

	list, err := c.svc.Users.Messages.List(user).Q(c.Query()).MaxResults(c.cfg.MaxResults).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("search mailbox: %w", err)
	}
	if len(list.Messages) == 0 {
		log.Info("no verification email found")
		return "", nil
	}

	for _, ref := range list.Messages {
		msg, err := c.svc.Users.Messages.Get(user, ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			return "", fmt.Errorf("fetch message %s: %w", ref.Id, err)
		}
		if code := c.extract(msg); code != "" {
			log.WithField("message_id", ref.Id).Info("verification code found")
			return code, nil
		}
	}
	log.Info("no verification code in recent emails")
	return "", nil
}

// extract pulls the code from the subject, then from the first standalone six digit
// token of the body.
func (c *Client) extract(msg *gmail.Message) string {
	if msg.Payload == nil {
		return ""
	}
	if m := c.subject.FindStringSubmatch(header(msg.Payload, "Subject")); len(m) > 1 {
		return m[1]
	}
	return bodyCode.FindString(decodeBody(msg.Payload))
}

func header(p *gmail.MessagePart, name string) string {
	for _, h := range p.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// decodeBody reads the first part, else the payload body. Gmail uses unpadded base64url
// but older messages are sometimes padded.
func decodeBody(p *gmail.MessagePart) string {
	var data string
	if len(p.Parts) > 0 && p.Parts[0].Body != nil {
		data = p.Parts[0].Body.Data
	}
	if data == "" && p.Body != nil {
		data = p.Body.Data
	}
	if data == "" {
		return ""
	}
	for _, enc := range []*base64.Encoding{base64.RawURLEncoding, base64.URLEncoding, base64.StdEncoding} {
		if b, err := enc.DecodeString(data); err == nil {
			return string(b)
		}
	}
	return ""
}

// Recent lists the newest messages in the inbox. It is used to check that the refresh
// token still grants mailbox access.
func (c *Client) Recent(ctx context.Context, n int64) ([]Summary, error) {
	list, err := c.svc.Users.Messages.List(user).MaxResults(n).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list mailbox: %w", err)
	}
	out := make([]Summary, 0, len(list.Messages))
	for _, ref := range list.Messages {
		msg, err := c.svc.Users.Messages.Get(user, ref.Id).Format("metadata").
			MetadataHeaders("Subject", "From").Context(ctx).Do()
		if err != nil {
			return nil, fmt.Errorf("fetch message %s: %w", ref.Id, err)
		}
		s := Summary{ID: ref.Id}
		if msg.Payload != nil {
			s.Subject = header(msg.Payload, "Subject")
			s.From = header(msg.Payload, "From")
		}
		out = append(out, s)
	}
	return out, nil
}
