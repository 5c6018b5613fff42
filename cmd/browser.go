package main

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/thayfamily/checklive/internal/browser"
)

// browserCommands prints where the Chromium executable would be taken from, without
// launching it.
func browserCommands(app *checkliveInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "browser",
		Short:       "report the browser executable a transfer would use",
		Annotations: map[string]string{"config": "optional"},
		Run: func(cmd *cobra.Command, args []string) {
			res := browser.Locate(app.cnf.Browser.Executable, app.cnf.Browser.CandidatePaths)
			data, err := json.MarshalIndent(res, "", "    ")
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(data))
		},
	}
	return cmd
}
