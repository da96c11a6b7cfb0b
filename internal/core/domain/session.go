package domain

import "strings"

// Session identifies the signed-in mother and carries the bearer credential
// forwarded to the entries API
type Session struct {
	UserID string
	Token  string
}

// Authenticated reports whether the session holds a usable credential
func (s Session) Authenticated() bool {
	return strings.TrimSpace(s.Token) != ""
}
