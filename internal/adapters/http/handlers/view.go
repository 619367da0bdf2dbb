package handlers

import "github.com/jsamuelsen/quotedesk/internal/domain"

// Labels shown by the page and echoed by the JSON API.
const (
	labelGenerate  = "Generate A Random Quote"
	labelLogIn     = "Log In"
	labelLogOut    = "Log Out"
	labelLoading   = "Loading..."
	statusLoggedIn = "You are Logged In!"
	statusLoggedOt = "You are Logged out!"
	statusLoading  = "You are ..."
)

// statusText is the one-line description of the session.
func statusText(s domain.SessionState) string {
	switch {
	case s.Loading:
		return statusLoading
	case s.LoggedIn:
		return statusLoggedIn
	default:
		return statusLoggedOt
	}
}

// buttonText is the label of the login toggle button.
func buttonText(s domain.SessionState) string {
	switch {
	case s.Loading:
		return labelLoading
	case s.LoggedIn:
		return labelLogOut
	default:
		return labelLogIn
	}
}
