package workflow

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFindInviteLink(t *testing.T) {
	pattern := regexp.MustCompile(DefaultInviteLinkPattern)

	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "href",
			html: `<a href="https://www.canva.com/brand/join?token=XyZ">join</a>`,
			want: "https://www.canva.com/brand/join?token=XyZ",
		},
		{
			name: "input value",
			html: `<input readonly value="https://canva.com/brand/join?token=42">`,
			want: "https://canva.com/brand/join?token=42",
		},
		{
			name: "text",
			html: `<div><span>Link: https://www.canva.com/brand/join?token=abc</span></div>`,
			want: "https://www.canva.com/brand/join?token=abc",
		},
		{
			name: "ignores scripts",
			html: `<script>var u = "https://www.canva.com/brand/join?token=old"</script><p>nothing</p>`,
			want: "",
		},
		{
			name: "none",
			html: `<p>https://www.canva.com/settings/people</p>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindInviteLink(tt.html, pattern))
		})
	}
}

func TestCheckBlocked(t *testing.T) {
	c := DefaultCopy()

	assert.NoError(t, checkBlocked(`<p>Enter your password</p>`, c))
	assert.ErrorIs(t, checkBlocked(`<p>There was a TECHNICAL ISSUE</p>`, c), ErrAutomationDetected)
	assert.ErrorIs(t, checkBlocked(`<p>blocked for security reasons</p>`, c), ErrSecurityBlocked)
	// text inside scripts is not what the user sees
	assert.NoError(t, checkBlocked(`<script>const m = "technical issue"</script><p>ok</p>`, c))
}

func TestCopyOverride(t *testing.T) {
	c := DefaultCopy().Override(map[string]string{
		"invite_button": "Invite members | Add people",
		"ROLE_OPTION":   "Designer",
		"unknown":       "ignored",
		"confirm":       " | ",
	})

	assert.Equal(t, []string{"Invite members", "Add people"}, c.InviteButton)
	assert.Equal(t, []string{"Designer"}, c.RoleOption)
	assert.Equal(t, DefaultCopy().Confirm, c.Confirm)
	assert.Equal(t, DefaultCopy().EmailLogin, c.EmailLogin)
}

func TestRowTexts(t *testing.T) {
	c := Copy{InviteRows: []string{"Invitation for {email} expires", "{email}"}}
	assert.Equal(t,
		[]string{"Invitation for a@x.com expires", "a@x.com"},
		c.rowTexts("a@x.com"))
}
