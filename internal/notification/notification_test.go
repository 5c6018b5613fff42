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

package notification

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thayfamily/checklive/config"
)

const webhook = "https://hooks.slack.com/services/T000/B000/XXXX"

func TestNewSlackMessage(t *testing.T) {
	at := time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC)
	msg := newSlackMessage("checklive", errors.New(`invite failed for "a@b.com"`), at)

	require.Len(t, msg.Blocks, 3)
	assert.Equal(t, "Error From checklive 🐞", msg.Blocks[0].Text.Text)
	assert.Equal(t, "*Error:*\ninvite failed for \"a@b.com\"", msg.Blocks[1].Fields[0].Text)
	assert.Equal(t, "*Time:*\n"+at.Format(time.RFC822), msg.Blocks[2].Fields[0].Text)

	// quotes in the error must survive as valid JSON
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestSlackNotification(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		ProjectName:  "checklive",
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: webhook}},
	})

	var body string
	httpmock.RegisterResponder(http.MethodPost, webhook, func(req *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(req.Body)
		body = string(b)
		return httpmock.NewStringResponse(http.StatusOK, "ok"), nil
	})

	SlackNotification(errors.New("transfer timed out"))

	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Contains(t, body, "transfer timed out")
	assert.Contains(t, body, "Error From checklive")
}

func TestNotifyErrorWithoutWebhook(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{ProjectName: "checklive"})

	NotifyError(errors.New("nothing to send"))
	time.Sleep(50 * time.Millisecond)

	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

func TestNotifyErrorPostsAsync(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	config.MockConfig(&config.Configuration{
		ProjectName:  "checklive",
		Notification: config.Notification{Slack: config.SlackWebhook{WebhookUrl: webhook}},
	})
	httpmock.RegisterResponder(http.MethodPost, webhook, httpmock.NewStringResponder(http.StatusOK, "ok"))

	NotifyError(errors.New("blocked by target"))

	assert.Eventually(t, func() bool {
		return httpmock.GetTotalCallCount() == 1
	}, time.Second, 10*time.Millisecond)
}
