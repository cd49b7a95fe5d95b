package mail

import (
	"context"
	"sync"
)

// Recorder is a Mailer that keeps everything in memory, for tests and
// offline development.
type Recorder struct {
	mu sync.Mutex

	// Err, when set, is returned by every send.
	Err error

	Invitations []Invitation
	Notices     []JoinRequestNotice
	Outcomes    []JoinRequestOutcome
}

func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) SendInvitation(_ context.Context, inv Invitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Invitations = append(r.Invitations, inv)
	return nil
}

func (r *Recorder) SendJoinRequestNotice(_ context.Context, n JoinRequestNotice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Notices = append(r.Notices, n)
	return nil
}

func (r *Recorder) SendJoinRequestOutcome(_ context.Context, out JoinRequestOutcome) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.Outcomes = append(r.Outcomes, out)
	return nil
}

var _ Mailer = (*Recorder)(nil)
