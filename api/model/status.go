package model

import (
	"github.com/thayfamily/checklive"
)

const (
	StatusLive  = "live"
	StatusDie   = "die"
	StatusError = "error"
)

type StatusResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// LiveData is returned when the customer's team is still active.
type LiveData struct {
	OrderCode  string `json:"orderCode"`
	TTKH       string `json:"ttkh"`
	Options    string `json:"options"`
	ExpiryDate string `json:"expiryDate"`
	Remaining  string `json:"remaining"`
	Team       string `json:"team"`
	Account    string `json:"account"`
	DateRenew  string `json:"dateRenew"`
}

// DieData points a customer of a dead team at its replacement. The password of the
// replacement account is never sent.
type DieData struct {
	OldTeam    string `json:"oldTeam"`
	TTKH       string `json:"ttkh"`
	NewTeam    string `json:"newTeam"`
	NewAccount string `json:"newAccount"`
}

func ErrorResponse(message string) StatusResponse {
	return StatusResponse{Status: StatusError, Message: message}
}

// NewStatusResponse renders a status report. The report of a dead team always carries
// a replacement; CheckStatus rejects the case without one.
func NewStatusResponse(report *checklive.StatusReport) StatusResponse {
	record, team := report.Record, report.Team
	if team.IsLive {
		return StatusResponse{
			Status:  StatusLive,
			Message: "team is active",
			Data: LiveData{
				OrderCode:  record.OrderCode,
				TTKH:       record.TTKH,
				Options:    record.Options,
				ExpiryDate: record.ExpiryDate,
				Remaining:  record.Remaining,
				Team:       record.TeamID,
				Account:    team.Account,
				DateRenew:  team.RenewDate,
			},
		}
	}

	data := DieData{OldTeam: record.TeamID, TTKH: record.TTKH}
	if team.Replacement != nil {
		data.NewTeam = team.Replacement.TeamID
		data.NewAccount = team.Replacement.Account
	}
	return StatusResponse{
		Status:  StatusDie,
		Message: "team is no longer active, a replacement is available",
		Data:    data,
	}
}
