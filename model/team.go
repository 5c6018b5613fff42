package model

import (
	"fmt"
	"strings"
)

// Column layout of the admin team table (A:G).
const (
	ColAdminAccount  = 1
	ColAdminPassword = 2
	ColAdminStatus   = 3
	ColAdminRenew    = 5
	ColAdminTeam     = 6
)

// TeamAccount is one row of the admin table.
type TeamAccount struct {
	TeamID    string `json:"team_id"`
	Account   string `json:"account"`
	Password  string `json:"-"`
	Status    string `json:"status"`
	RenewDate string `json:"renew_date"`
	Row       int    `json:"row"`
}

// TeamFromRow maps an admin table row; index is the 0-based position in the fetched range.
func TeamFromRow(row []string, index int) *TeamAccount {
	return &TeamAccount{
		TeamID:    Cell(row, ColAdminTeam),
		Account:   Cell(row, ColAdminAccount),
		Password:  Cell(row, ColAdminPassword),
		Status:    Cell(row, ColAdminStatus),
		RenewDate: Cell(row, ColAdminRenew),
		Row:       index + 1,
	}
}

// IsAlive treats anything other than the dead marker as alive, including a blank status.
func (t *TeamAccount) IsAlive(deadMarker string) bool {
	return !strings.EqualFold(strings.TrimSpace(t.Status), strings.TrimSpace(deadMarker))
}

// Credentials returns the login pair of the team account.
func (t *TeamAccount) Credentials() Credentials {
	return Credentials{Account: t.Account, Password: t.Password}
}

// TeamStatus is the result of a team status lookup.
type TeamStatus struct {
	IsLive      bool         `json:"is_live"`
	Account     string       `json:"account"`
	Password    string       `json:"-"`
	RenewDate   string       `json:"renew_date"`
	Replacement *TeamAccount `json:"replacement,omitempty"`
}

// Credentials are the login pair of a team account.
type Credentials struct {
	Account  string
	Password string
}

// Usable reports whether both halves of the pair are present.
func (c Credentials) Usable() bool {
	return strings.TrimSpace(c.Account) != "" && strings.TrimSpace(c.Password) != ""
}

// TeamColumnCell builds the A1 reference of the team cell for a 1-based sheet row.
func TeamColumnCell(row int) string {
	return fmt.Sprintf("%s%d", TeamColumn, row)
}
