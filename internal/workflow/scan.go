package workflow

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultInviteLinkPattern matches the join URL the settings page hands out.
const DefaultInviteLinkPattern = `https://(?:www\.)?canva\.com/brand/join[^\s"'<>]*`

// pageText returns the visible text of an HTML document, collapsed to single spaces.
func pageText(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return html
	}
	doc.Find("script, style, noscript").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// containsAny is a case-insensitive substring match against any of subs.
func containsAny(text string, subs []string) bool {
	lower := strings.ToLower(text)
	for _, s := range subs {
		if s != "" && strings.Contains(lower, strings.ToLower(s)) {
			return true
		}
	}
	return false
}

// checkBlocked looks for the site's refusal pages in the current HTML.
func checkBlocked(html string, c Copy) error {
	text := pageText(html)
	if containsAny(text, c.AutomationSignatures) {
		return ErrAutomationDetected
	}
	if containsAny(text, c.SecuritySignatures) {
		return ErrSecurityBlocked
	}
	return nil
}

// FindInviteLink scans href and value attributes, then element text, for the first
// string matching pattern.
func FindInviteLink(html string, pattern *regexp.Regexp) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return pattern.FindString(html)
	}

	var link string
	doc.Find("[href], [value], [data-link]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, attr := range []string{"href", "value", "data-link"} {
			if v, ok := s.Attr(attr); ok {
				if m := pattern.FindString(v); m != "" {
					link = m
					return false
				}
			}
		}
		return true
	})
	if link != "" {
		return link
	}

	doc.Find("script, style").Remove()
	return pattern.FindString(doc.Text())
}
