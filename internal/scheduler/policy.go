package scheduler

import (
	"fmt"

	"github.com/hamed0406/servicemonitor/internal/domain"
)

// ProbeState is what the daemon remembers about one probe between cycles.
// The zero value is the initial state: an empty Info message, counter 0.
type ProbeState struct {
	LastMessage   domain.Message
	RepeatCounter int
}

// Decision is the outcome of evaluating one probe result.
type Decision int

const (
	// DecisionSkip: Info result, nothing to do.
	DecisionSkip Decision = iota
	// DecisionNotify: a new situation, sent immediately.
	DecisionNotify
	// DecisionSuppress: the situation persists and is not due yet.
	DecisionSuppress
	// DecisionRepeat: the situation persists and its repeat period elapsed.
	DecisionRepeat
)

func (d Decision) String() string {
	switch d {
	case DecisionSkip:
		return "skip"
	case DecisionNotify:
		return "notify"
	case DecisionSuppress:
		return "suppress"
	case DecisionRepeat:
		return "repeat"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// Emit reports whether the message must be handed to the notifier.
func (d Decision) Emit() bool {
	return d == DecisionNotify || d == DecisionRepeat
}

// Policy decides when a probe result warrants a notification.
type Policy struct {
	// Cycles an unchanged Error/Warning is held back before it is re-sent.
	ErrorRepeatPeriod   int
	WarningRepeatPeriod int
	// ClearOnRecovery resets the probe state on an Info result, so the next
	// failure is treated as new. Off by default.
	ClearOnRecovery bool
}

// Evaluate applies the policy to msg and updates st in place. The state is
// updated the same way whether or not the later send succeeds.
func (p Policy) Evaluate(st *ProbeState, msg domain.Message) Decision {
	if msg.Severity == domain.Info {
		if p.ClearOnRecovery {
			*st = ProbeState{}
		}
		return DecisionSkip
	}

	if !msg.SameSituation(st.LastMessage) {
		st.RepeatCounter = 0
		st.LastMessage = msg
		return DecisionNotify
	}

	var threshold int
	switch msg.Severity {
	case domain.Error:
		threshold = p.ErrorRepeatPeriod
	case domain.Warning:
		threshold = p.WarningRepeatPeriod
	default:
		panic(fmt.Sprintf("scheduler: unreachable severity %v after info filter", msg.Severity))
	}

	// RepeatCounter counts every cycle the situation has persisted and is
	// never reset by a repeat: once past the threshold every cycle re-sends.
	d := DecisionSuppress
	if st.RepeatCounter >= threshold {
		d = DecisionRepeat
	}
	st.RepeatCounter++
	return d
}
