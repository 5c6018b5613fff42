package model

// Transfer outcome statuses reported to the caller.
const (
	TransferSuccess        = "success"
	TransferPartialSuccess = "partial_success"
	TransferError          = "error"
)

// Sub-codes attached to an error outcome.
const (
	CodeTransferInProgress = "TRANSFER_IN_PROGRESS"
	CodeTimeout            = "TIMEOUT"
	CodeNoCredentials      = "NO_CREDENTIALS"
	CodeBlocked            = "BLOCKED_BY_TARGET"
	CodeVerification       = "VERIFICATION_UNAVAILABLE"
	CodeInviteFailed       = "INVITE_FAILED"
	CodeRecordNotFound     = "RECORD_NOT_FOUND"
)

// TransferResult is what a successful automation run produces.
type TransferResult struct {
	InviteLink string `json:"inviteLink"`
	NewTeamID  string `json:"newTeamId"`
}

// TransferOutcome is the structured result of a transfer request. It is never an error
// value: every failure is folded into Status, Code and Message.
type TransferOutcome struct {
	Status  string          `json:"status"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message"`
	Data    *TransferResult `json:"data,omitempty"`
}

// Failed reports whether no invite link was obtained.
func (o TransferOutcome) Failed() bool {
	return o.Status == TransferError
}
