// Package platform abstracts the call-control API of the telephony
// platform hosting the interpreted calls. Drivers return the platform's
// status code verbatim; acceptance is judged against per-action sets
// because the platform treats its return codes as advisory.
package platform

import (
	"context"
	"net/http"
)

// Driver executes call-control actions. The token comes from the
// credential manager and authorizes exactly one action.
type Driver interface {
	Answer(ctx context.Context, token, callID string) (int, error)
	PlayPrompt(ctx context.Context, token, callID, resourceID string) (int, error)
	Hangup(ctx context.Context, token, callID string) (int, error)
}

// Factory builds a driver from decoded settings.
type Factory func(settings map[string]any) (Driver, error)

// AnswerAccepted reports whether an answer action succeeded.
func AnswerAccepted(status int) bool {
	return status == http.StatusOK || status == http.StatusAccepted
}

// PromptAccepted reports whether a prompt action succeeded.
func PromptAccepted(status int) bool {
	return status == http.StatusOK || status == http.StatusAccepted
}

// HangupAccepted reports whether a hangup action succeeded.
func HangupAccepted(status int) bool {
	return status == http.StatusNoContent || status == http.StatusAccepted
}

// WelcomeResourceID names the prefetched greeting played after answering.
const WelcomeResourceID = "welcome"
