package workflow

import (
	"strings"
	"time"

	"github.com/thayfamily/checklive/internal/browser"
)

// EmailPlaceholder is replaced with the invitee address in InviteRows.
const EmailPlaceholder = "{email}"

// Copy is the visible text of the remote UI the workflow keys on. Every field holds
// alternatives; an element matches on any of them.
type Copy struct {
	EmailLogin           []string
	Continue             []string
	LogIn                []string
	Verify               []string
	AutomationSignatures []string
	SecuritySignatures   []string
	InviteButton         []string
	RoleSelector         []string
	RoleSelectorLabels   []string
	RoleOption           []string
	Confirm              []string
	InviteRows           []string
	CopyLinkLabels       []string
}

// DefaultCopy matches the Vietnamese and English UI of the team settings pages.
func DefaultCopy() Copy {
	return Copy{
		EmailLogin:           []string{"Continue with email", "Tiếp tục với email"},
		Continue:             []string{"Continue", "Tiếp tục"},
		LogIn:                []string{"Log in", "Đăng nhập"},
		Verify:               []string{"Continue", "Verify", "Tiếp tục", "Xác minh"},
		AutomationSignatures: []string{"technical issue"},
		SecuritySignatures:   []string{"security reasons", "RRS‑", "different Wi-Fi"},
		InviteButton:         []string{"Mời mọi người", "Invite people"},
		RoleSelector:         []string{"Thành viên đội", "Team member"},
		RoleSelectorLabels:   []string{"Chỉ định vai trò", "Assign role"},
		RoleOption:           []string{"Nhà thiết kế thương hiệu của đội", "Brand designer"},
		Confirm:              []string{"Xác nhận và mời", "Confirm", "Send invite"},
		InviteRows:           []string{"Lời mời của {email} còn hiệu lực trong", "{email}"},
		CopyLinkLabels:       []string{"Sao chép liên kết duy nhất", "Copy unique link"},
	}
}

// Override replaces fields named in m. Values hold alternatives separated by "|".
// Unknown keys are ignored.
func (c Copy) Override(m map[string]string) Copy {
	fields := map[string]*[]string{
		"email_login":           &c.EmailLogin,
		"continue":              &c.Continue,
		"log_in":                &c.LogIn,
		"verify":                &c.Verify,
		"automation_signatures": &c.AutomationSignatures,
		"security_signatures":   &c.SecuritySignatures,
		"invite_button":         &c.InviteButton,
		"role_selector":         &c.RoleSelector,
		"role_selector_labels":  &c.RoleSelectorLabels,
		"role_option":           &c.RoleOption,
		"confirm":               &c.Confirm,
		"invite_rows":           &c.InviteRows,
		"copy_link_labels":      &c.CopyLinkLabels,
	}
	for key, raw := range m {
		field, ok := fields[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		var alts []string
		for _, alt := range strings.Split(raw, "|") {
			if alt = strings.TrimSpace(alt); alt != "" {
				alts = append(alts, alt)
			}
		}
		if len(alts) > 0 {
			*field = alts
		}
	}
	return c
}

// rowTexts expands InviteRows for one invitee.
func (c Copy) rowTexts(invitee string) []string {
	out := make([]string, 0, len(c.InviteRows))
	for _, t := range c.InviteRows {
		out = append(out, strings.ReplaceAll(t, EmailPlaceholder, invitee))
	}
	return out
}

type locators struct {
	emailLogin    browser.Locator
	emailInputs   []browser.Locator
	continueBtn   browser.Locator
	password      browser.Locator
	logIn         browser.Locator
	code          browser.Locator
	verify        browser.Locator
	inviteButton  browser.Locator
	roleSelector  browser.Locator
	roleOption    browser.Locator
	inviteeEmail  browser.Locator
	confirmInvite browser.Locator
}

func (c Copy) locators(step, lookup time.Duration) locators {
	return locators{
		emailLogin: browser.Locator{Name: "email login button", Selector: "button", Texts: c.EmailLogin, Timeout: step},
		emailInputs: []browser.Locator{
			{Name: "email input (inputmode)", Selector: `input[inputmode="email"]`, Timeout: lookup},
			{Name: "email input (name)", Selector: `input[name="email"]`, Timeout: lookup},
			{Name: "email input (autocomplete)", Selector: `input[autocomplete="email"]`, Timeout: lookup},
		},
		continueBtn:  browser.Locator{Name: "continue button", Selector: "button", Texts: c.Continue, Exclude: c.EmailLogin, Timeout: step},
		password:     browser.Locator{Name: "password input", Selector: `input[type="password"]`, Timeout: step},
		logIn:        browser.Locator{Name: "log in button", Selector: "button", Texts: c.LogIn, Timeout: step},
		code:         browser.Locator{Name: "verification code input", Selector: `input[type="text"], input[placeholder*="code"], input[autocomplete="one-time-code"]`, Timeout: lookup},
		verify:       browser.Locator{Name: "verification submit button", Selector: "button", Texts: c.Verify, Timeout: step},
		inviteButton: browser.Locator{Name: "invite button", Selector: "button", Texts: c.InviteButton, Labels: c.InviteButton, Timeout: step},
		roleSelector: browser.Locator{Name: "role selector", Selector: `button[role="combobox"]`, Texts: c.RoleSelector, Labels: c.RoleSelectorLabels, Timeout: step},
		roleOption:   browser.Locator{Name: "role option", Selector: `button, [role="option"]`, Texts: c.RoleOption, Timeout: step},
		inviteeEmail: browser.Locator{Name: "invitee email input", Selector: `input[inputmode="email"]`, Timeout: step},
		confirmInvite: browser.Locator{
			Name:     "confirm invite button",
			Selector: "button",
			Texts:    c.Confirm,
			Exclude:  c.InviteButton,
			Timeout:  step,
		},
	}
}
