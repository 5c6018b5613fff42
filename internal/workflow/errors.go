package workflow

import (
	"errors"
	"fmt"
)

var (
	// ErrAutomationDetected is returned when the login page reports a "technical issue",
	// which is how the target site answers a browser it believes is automated.
	ErrAutomationDetected = errors.New("the site detected browser automation; log in manually or retry later")

	// ErrSecurityBlocked is returned when the login is refused for security reasons.
	ErrSecurityBlocked = errors.New("the site blocked this login for security reasons. To recover:\n" +
		"1. switch to a different network or IP\n" +
		"2. use a different browser or device\n" +
		"3. wait 24-48 hours before retrying\n" +
		"4. invite the customer into the team manually")

	errCopyControlMissing = errors.New("no copy link control on the page")
	errNoInviteLink       = errors.New("invite link not found in clipboard or page")
	errNoCode             = errors.New("no verification code in mailbox")
	errNoMailbox          = errors.New("no mailbox is configured")
)

// VerificationUnavailableError means the site asked for a login code and none could be
// read from the mailbox.
type VerificationUnavailableError struct {
	Account  string
	Attempts int
	Err      error
}

func (e *VerificationUnavailableError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("could not retrieve verification code for %s: %v", e.Account, e.Err)
	}
	return fmt.Sprintf("could not retrieve verification code for %s after %d attempts", e.Account, e.Attempts)
}

func (e *VerificationUnavailableError) Unwrap() error {
	return e.Err
}

// LoopExhaustedError means every invite attempt ran without producing a link.
type LoopExhaustedError struct {
	Email    string
	Attempts int
	Err      error
}

func (e *LoopExhaustedError) Error() string {
	return fmt.Sprintf("could not create invite link for %s after %d attempts: %v", e.Email, e.Attempts, e.Err)
}

func (e *LoopExhaustedError) Unwrap() error {
	return e.Err
}

// IsBlocked reports whether err is one of the site's explicit refusals.
func IsBlocked(err error) bool {
	return errors.Is(err, ErrAutomationDetected) || errors.Is(err, ErrSecurityBlocked)
}
