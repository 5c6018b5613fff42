package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

const redacted = "********"

func redact(v string) string {
	if v == "" {
		return ""
	}
	return redacted
}

// configCommands prints the computed configuration with secrets masked.
func configCommands(app *checkliveInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "config outputs your instances computed configuration",
		Run: func(cmd *cobra.Command, args []string) {
			cfg := *app.cnf
			cfg.Server.SecretKey = redact(cfg.Server.SecretKey)
			cfg.Google.ClientSecret = redact(cfg.Google.ClientSecret)
			cfg.Google.RefreshToken = redact(cfg.Google.RefreshToken)
			cfg.Notification.Slack.WebhookUrl = redact(cfg.Notification.Slack.WebhookUrl)
			cfg.Redis.Dns = redact(cfg.Redis.Dns)

			data, err := json.MarshalIndent(cfg, "", "    ")
			if err != nil {
				log.Fatalf("Error printing config: %v\n", err)
			}

			fmt.Println(string(data))
		},
	}
	return cmd
}

