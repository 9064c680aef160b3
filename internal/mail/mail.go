// Package mail delivers the confirmation and password reset emails.
package mail

import (
	"context"
	"net/url"
	"strings"
)

// Message is one outbound action email.
type Message struct {
	To          string
	Subject     string
	Text        string
	CallbackURL string
}

// Dispatcher delivers a Message.
type Dispatcher interface {
	Send(ctx context.Context, msg Message) error
}

// CallbackURL appends the account id and action code to a front-end link.
// The base is not parsed so hash-routed links keep the query after the fragment.
func CallbackURL(base, accountID, code string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "userId=" + url.QueryEscape(accountID) + "&code=" + url.QueryEscape(code)
}
