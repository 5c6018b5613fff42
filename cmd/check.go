package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/spf13/cobra"

	model2 "github.com/thayfamily/checklive/api/model"
	"github.com/thayfamily/checklive/model"
)

// checkCommands runs the same lookup as POST /check-status and prints the response.
func checkCommands(app *checkliveInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:         "check <email>",
		Short:       "check the team status of a customer",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"service": "true"},
		Run: func(cmd *cobra.Command, args []string) {
			req := model2.EmailRequest{Email: args[0]}
			if err := req.ValidateEmailRequest(); err != nil {
				log.Fatal(err)
			}

			var resp model2.StatusResponse
			report, err := app.checklive.CheckStatus(cmd.Context(), req.Email)
			switch {
			case errors.Is(err, model.ErrNoReplacement), errors.Is(err, model.ErrRecordNotFound), errors.Is(err, model.ErrTeamNotFound):
				resp = model2.ErrorResponse(err.Error())
			case err != nil:
				log.Fatal(err)
			default:
				resp = model2.NewStatusResponse(report)
			}

			data, err := json.MarshalIndent(resp, "", "    ")
			if err != nil {
				log.Fatal(err)
			}
			fmt.Println(string(data))
		},
	}
	return cmd
}
