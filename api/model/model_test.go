package model

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"

	"github.com/thayfamily/checklive"
	"github.com/thayfamily/checklive/model"
)

func TestValidateEmailRequest(t *testing.T) {
	tests := []struct {
		name    string
		email   string
		wantErr bool
	}{
		{name: "Valid email", email: gofakeit.Email(), wantErr: false},
		{name: "Padded email", email: "  buyer@example.com ", wantErr: false},
		{name: "Empty email", email: "", wantErr: true},
		{name: "Blank email", email: "   ", wantErr: true},
		{name: "Malformed email", email: "not-an-email", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := EmailRequest{Email: tt.email}
			err := req.ValidateEmailRequest()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateEmailRequestTrims(t *testing.T) {
	req := EmailRequest{Email: "  buyer@example.com "}
	assert.NoError(t, req.ValidateEmailRequest())
	assert.Equal(t, "buyer@example.com", req.Email)
}

func TestNewStatusResponse(t *testing.T) {
	record := &model.SubscriptionRecord{
		Email: "buyer@example.com", OrderCode: "OC-1", Options: "1 year", ExpiryDate: "2026-12-01",
		Remaining: "40", TTKH: "KH01", TeamID: "team-a", Row: 3,
	}

	t.Run("live", func(t *testing.T) {
		resp := NewStatusResponse(&checklive.StatusReport{
			Record: record,
			Team:   &model.TeamStatus{IsLive: true, Account: "owner@a.com", Password: "secret", RenewDate: "2026-11-01"},
		})
		assert.Equal(t, StatusLive, resp.Status)
		assert.Equal(t, LiveData{
			OrderCode: "OC-1", TTKH: "KH01", Options: "1 year", ExpiryDate: "2026-12-01",
			Remaining: "40", Team: "team-a", Account: "owner@a.com", DateRenew: "2026-11-01",
		}, resp.Data)
	})

	t.Run("die", func(t *testing.T) {
		resp := NewStatusResponse(&checklive.StatusReport{
			Record: record,
			Team: &model.TeamStatus{
				IsLive:      false,
				Account:     "owner@a.com",
				Replacement: &model.TeamAccount{TeamID: "team-b", Account: "owner@b.com", Password: "hidden"},
			},
		})
		assert.Equal(t, StatusDie, resp.Status)
		assert.Equal(t, DieData{OldTeam: "team-a", TTKH: "KH01", NewTeam: "team-b", NewAccount: "owner@b.com"}, resp.Data)
	})
}
