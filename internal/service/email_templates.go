package service

import (
	"fmt"
	"time"
)

func magicLinkEmailTemplate(name, magicURL, appName string) (string, string) {
	greeting := "Hi,"
	if name != "" {
		greeting = fmt.Sprintf("Hi %s,", name)
	}

	subject := fmt.Sprintf("Sign in to %s admin", appName)
	body := fmt.Sprintf(`%s

Click this link to sign in to the %s admin:
%s

This link expires in 15 minutes and can only be used once.

If you didn't request this, ignore this email.

%s`, greeting, appName, magicURL, appName)

	return subject, body
}

func invitationEmailTemplate(inviter, role, acceptURL string, expiresAt time.Time, appName string) (string, string) {
	subject := fmt.Sprintf("You're invited to %s", appName)
	body := fmt.Sprintf(`Hi,

%s invited you to join %s as %s.

Accept the invitation and sign in:
%s

This invitation expires on %s.

If you weren't expecting this, you can ignore this email.

%s`, inviter, appName, articleRole(role), acceptURL, expiresAt.Format("January 2, 2006"), appName)

	return subject, body
}

func articleRole(role string) string {
	switch role {
	case "admin", "associate":
		return "an " + role
	default:
		return "a " + role
	}
}
