package types

import "fmt"

type JobState string

const (
	StatePending   JobState = "pending"
	StateRunning   JobState = "running"
	StateNoFaces   JobState = "no_faces"
	StateFailed    JobState = "failed"
	StateSucceeded JobState = "succeeded"
	StateAccepted  JobState = "accepted"
	StateRejected  JobState = "rejected"
)

var allowedTransitions = map[JobState]map[JobState]bool{
	"": {
		StatePending: true,
	},
	StatePending: {
		StateRunning: true,
	},
	StateRunning: {
		StateNoFaces:   true,
		StateFailed:    true,
		StateSucceeded: true,
	},
	StateSucceeded: {
		StateAccepted: true,
		StateRejected: true,
	},
}

// Terminal reports whether no further transition is possible from s.
func (s JobState) Terminal() bool {
	switch s {
	case StateNoFaces, StateFailed, StateAccepted, StateRejected:
		return true
	}
	return false
}

func CanTransition(from, to JobState) bool {
	next, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Transition moves job to state to, recording message. Message is kept when
// the new message is empty so a failure reason survives later bookkeeping.
func Transition(job *Job, to JobState, message string) error {
	from := job.State
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid job status transition: %q -> %q (reference=%s)", from, to, job.Reference)
	}
	job.State = to
	if message != "" {
		job.Message = message
	}
	return nil
}
