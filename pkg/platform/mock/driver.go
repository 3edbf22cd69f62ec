// Package mock is an in-memory call-control driver for local runs and
// integration tests. It records every action and answers with scripted
// statuses, no network involved.
package mock

import (
	"context"
	"net/http"
	"sync"

	"github.com/dragomanhq/dragoman/pkg/platform"
)

// Action is one recorded call-control invocation.
type Action struct {
	Kind       string
	CallID     string
	ResourceID string
	Token      string
}

type Driver struct {
	mu      sync.Mutex
	actions []Action

	AnswerStatus int
	PromptStatus int
	HangupStatus int
	Err          error
}

func New() *Driver {
	return &Driver{
		AnswerStatus: http.StatusAccepted,
		PromptStatus: http.StatusOK,
		HangupStatus: http.StatusNoContent,
	}
}

func (d *Driver) Answer(ctx context.Context, token, callID string) (int, error) {
	d.record(Action{Kind: "answer", CallID: callID, Token: token})
	return d.AnswerStatus, d.Err
}

func (d *Driver) PlayPrompt(ctx context.Context, token, callID, resourceID string) (int, error) {
	d.record(Action{Kind: "play_prompt", CallID: callID, ResourceID: resourceID, Token: token})
	return d.PromptStatus, d.Err
}

func (d *Driver) Hangup(ctx context.Context, token, callID string) (int, error) {
	d.record(Action{Kind: "hangup", CallID: callID, Token: token})
	return d.HangupStatus, d.Err
}

func (d *Driver) record(a Action) {
	d.mu.Lock()
	d.actions = append(d.actions, a)
	d.mu.Unlock()
}

// Actions returns a copy of everything recorded so far.
func (d *Driver) Actions() []Action {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Action, len(d.actions))
	copy(out, d.actions)
	return out
}

// ActionsOf filters recorded actions by kind.
func (d *Driver) ActionsOf(kind string) []Action {
	var out []Action
	for _, a := range d.Actions() {
		if a.Kind == kind {
			out = append(out, a)
		}
	}
	return out
}

var _ platform.Driver = (*Driver)(nil)
