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

package checklive

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/thayfamily/checklive/model"
)

// StatusReport is the combined result of the record and team lookups.
type StatusReport struct {
	Record *model.SubscriptionRecord
	Team   *model.TeamStatus
}

// dataRows drops the header rows of a fetched table and pairs each remaining row with
// its index in the fetched range.
func dataRows(rows [][]string, header int) (int, [][]string) {
	if header >= len(rows) {
		return len(rows), nil
	}
	return header, rows[header:]
}

// FindRecordForEmail returns the first subscription row whose email matches,
// ignoring case. A clean miss is model.ErrRecordNotFound; a table that cannot be read
// returns the fetch error.
func (c *Checklive) FindRecordForEmail(ctx context.Context, email string) (*model.SubscriptionRecord, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "FindRecordForEmail")
	defer span.End()

	rows, err := c.sheets.Rows(ctx, c.sheet.PrimaryTable)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch subscription table: %w", err)
	}

	offset, data := dataRows(rows, c.sheet.PrimaryHeaderRows)
	for i, row := range data {
		if model.SameText(model.Cell(row, model.ColEmail), email) {
			span.SetAttributes(attribute.Int("sheet.row", offset+i+1))
			return model.SubscriptionFromRow(row, offset+i), nil
		}
	}
	span.AddEvent("record not found")
	return nil, model.ErrRecordNotFound
}

// CheckTeam looks up a team in the admin table. When the team is dead the replacement
// is the first row, in table order, that is not dead. Blank rows are not teams.
func (c *Checklive) CheckTeam(ctx context.Context, teamID string) (*model.TeamStatus, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CheckTeam", trace.WithAttributes(attribute.String("team.id", teamID)))
	defer span.End()

	rows, err := c.sheets.Rows(ctx, c.sheet.AdminTable)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch admin table: %w", err)
	}

	offset, data := dataRows(rows, c.sheet.AdminHeaderRows)
	var team *model.TeamAccount
	for i, row := range data {
		if model.SameText(model.Cell(row, model.ColAdminTeam), teamID) {
			team = model.TeamFromRow(row, offset+i)
			break
		}
	}
	if team == nil {
		return nil, model.ErrTeamNotFound
	}

	status := &model.TeamStatus{
		IsLive:    team.IsAlive(c.sheet.DeadMarker),
		Account:   team.Account,
		Password:  team.Password,
		RenewDate: team.RenewDate,
	}
	span.SetAttributes(attribute.Bool("team.live", status.IsLive))
	if status.IsLive {
		return status, nil
	}

	for i, row := range data {
		candidate := model.TeamFromRow(row, offset+i)
		if candidate.TeamID == "" && candidate.Account == "" {
			continue
		}
		if candidate.IsAlive(c.sheet.DeadMarker) {
			status.Replacement = candidate
			break
		}
	}
	return status, nil
}

// CheckStatus runs both lookups for an email. A dead team without a replacement is
// reported as model.ErrNoReplacement.
func (c *Checklive) CheckStatus(ctx context.Context, email string) (*StatusReport, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "CheckStatus")
	defer span.End()

	record, err := c.FindRecordForEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	team, err := c.CheckTeam(ctx, record.TeamID)
	if err != nil {
		return nil, err
	}
	if !team.IsLive && team.Replacement == nil {
		logrus.WithFields(logrus.Fields{"email": email, "team": record.TeamID}).Warn("dead team has no replacement")
		span.AddEvent("no replacement team")
		return nil, model.ErrNoReplacement
	}
	return &StatusReport{Record: record, Team: team}, nil
}

// LatestCredentials returns the most recently added admin row that has both an account
// and a password, scanning from the bottom of the table.
func (c *Checklive) LatestCredentials(ctx context.Context) (*model.TeamAccount, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "LatestCredentials")
	defer span.End()

	rows, err := c.sheets.Rows(ctx, c.sheet.AdminTable)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("fetch admin table: %w", err)
	}

	offset, data := dataRows(rows, c.sheet.AdminHeaderRows)
	for i := len(data) - 1; i >= 0; i-- {
		team := model.TeamFromRow(data[i], offset+i)
		if team.Credentials().Usable() {
			return team, nil
		}
	}
	return nil, model.ErrNoCredentials
}
