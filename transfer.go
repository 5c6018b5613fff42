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
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/thayfamily/checklive/internal/lock"
	"github.com/thayfamily/checklive/internal/workflow"
	"github.com/thayfamily/checklive/model"
)

const persistTimeout = 30 * time.Second

// TransferTeam moves a customer into the replacement team. Only one transfer runs at a
// time; a second request is rejected at once with TRANSFER_IN_PROGRESS. The run is
// detached from ctx's cancellation and bounded by the transfer budget instead, so a
// dropped client connection does not abandon a half-driven browser.
func (c *Checklive) TransferTeam(ctx context.Context, email string) model.TransferOutcome {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "TransferTeam")
	defer span.End()

	out := c.transferTeam(ctx, email)
	span.SetAttributes(
		attribute.String("transfer.status", out.Status),
		attribute.String("transfer.code", out.Code),
	)
	if out.Failed() {
		span.SetStatus(codes.Error, out.Message)
	}
	return out
}

func (c *Checklive) transferTeam(ctx context.Context, email string) model.TransferOutcome {
	email = strings.TrimSpace(email)
	log := logrus.WithField("email", email)
	bg := context.WithoutCancel(ctx)
	if c.runner == nil {
		return failure("", "browser automation is not configured on this server")
	}

	c.lock.ForceClearIfStale(bg)

	runCtx, cancel := context.WithTimeout(bg, c.budget)
	defer cancel()

	lease, err := c.lock.TryAcquire(bg, email, cancel)
	if err != nil {
		if errors.Is(err, lock.ErrTransferInProgress) {
			log.Info("transfer rejected, another one is running")
			return failure(model.CodeTransferInProgress, "another transfer is in progress, try again in a few minutes")
		}
		return c.fail(log, "", fmt.Errorf("acquire transfer lock: %w", err))
	}
	defer c.lock.Release(bg, lease)

	if _, err := c.FindRecordForEmail(runCtx, email); err != nil {
		if errors.Is(err, model.ErrRecordNotFound) {
			return failure(model.CodeRecordNotFound, err.Error())
		}
		return c.fail(log, "", err)
	}

	team, err := c.LatestCredentials(runCtx)
	if err != nil {
		if errors.Is(err, model.ErrNoCredentials) {
			return c.fail(log, model.CodeNoCredentials, err)
		}
		return c.fail(log, "", err)
	}
	newTeamID := team.TeamID
	if newTeamID == "" {
		newTeamID = team.Account
	}
	log = log.WithFields(logrus.Fields{"new_team": newTeamID, "account": team.Account})
	log.Info("starting transfer")

	link, err := c.runner.Transfer(runCtx, workflow.Request{
		Invitee:     email,
		Credentials: team.Credentials(),
		OnLaunch:    lease.Attach,
	})
	if err != nil || link == "" {
		switch {
		case runCtx.Err() != nil:
			err = runCtx.Err()
		case err == nil:
			return c.fail(log, model.CodeInviteFailed, errors.New("automation finished without an invite link"))
		}
		return c.fail(log, "", err)
	}

	result := &model.TransferResult{InviteLink: link, NewTeamID: newTeamID}
	pctx, pcancel := context.WithTimeout(bg, persistTimeout)
	pctx, pspan := otel.Tracer(tracerName).Start(pctx, "PersistTeam")
	defer pspan.End()
	defer pcancel()
	if err := c.persistTeam(pctx, email, newTeamID); err != nil {
		pspan.RecordError(err)
		log.WithError(err).Error("invite created but sheet update failed")
		c.notify(fmt.Errorf("transfer of %s: invite created but sheet not updated: %w", email, err))
		return model.TransferOutcome{
			Status:  model.TransferPartialSuccess,
			Message: "invite link created but the sheet could not be updated: " + err.Error(),
			Data:    result,
		}
	}

	log.Info("transfer complete")
	return model.TransferOutcome{
		Status:  model.TransferSuccess,
		Message: "invite link created",
		Data:    result,
	}
}

// persistTeam re-reads the record so a row inserted during the run does not send the
// write to the wrong line.
func (c *Checklive) persistTeam(ctx context.Context, email, teamID string) error {
	record, err := c.FindRecordForEmail(ctx, email)
	if err != nil {
		return err
	}
	return c.sheets.UpdateCell(ctx, c.sheet.PrimaryTable, record.TeamCell(), teamID)
}

func failure(code, message string) model.TransferOutcome {
	return model.TransferOutcome{Status: model.TransferError, Code: code, Message: message}
}

// fail classifies err into an error outcome and reports it. code, when set, wins over
// the classification.
func (c *Checklive) fail(log *logrus.Entry, code string, err error) model.TransferOutcome {
	message := err.Error()

	var unavailable *workflow.VerificationUnavailableError
	var exhausted *workflow.LoopExhaustedError
	switch {
	case code != "":
	case errors.Is(err, context.DeadlineExceeded):
		code = model.CodeTimeout
		message = fmt.Sprintf("transfer did not finish within %s", c.budget)
	case errors.Is(err, context.Canceled):
		message = "transfer was cancelled after it ran past the stale timeout"
	case workflow.IsBlocked(err):
		code = model.CodeBlocked
	case errors.As(err, &unavailable):
		code = model.CodeVerification
	case errors.As(err, &exhausted):
		code = model.CodeInviteFailed
	}

	log.WithError(err).WithField("code", code).Error("transfer failed")
	c.notify(fmt.Errorf("transfer failed: %w", err))
	return failure(code, message)
}
