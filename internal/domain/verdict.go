package domain

import (
	"math"
	"strings"
	"time"
)

type Verdict string

const (
	VerdictGood    Verdict = "good"
	VerdictBad     Verdict = "bad"
	VerdictWorking Verdict = "working"
	VerdictBlocked Verdict = "blocked"
	VerdictError   Verdict = "error"
)

var verdictAliases = map[string]Verdict{
	"good":    VerdictGood,
	"ok":      VerdictGood,
	"bad":     VerdictBad,
	"broken":  VerdictBad,
	"working": VerdictWorking,
	"blocked": VerdictBlocked,
	"banned":  VerdictBlocked,
	"error":   VerdictError,
}

func ParseVerdict(raw string) (Verdict, error) {
	verdict, ok := verdictAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", Reject(ErrInvalidVerdict, "unknown verdict %q: use good, bad, working, blocked or error", raw)
	}
	return verdict, nil
}

func (v Verdict) ReceiptState() ReceiptState {
	return ReceiptState(v)
}

func (v Verdict) Action() Action {
	return Action("status_" + string(v))
}

// LifetimeUntilBlocked closes a resource now, recording the minutes it lived.
const LifetimeUntilBlocked = -1

// MaxLifetimeMinutes is the longest lifetime a time.Duration can express.
const MaxLifetimeMinutes = int(math.MaxInt64 / time.Minute)

var LifetimePresets = []int{10, 20, 30, 60, 120, 360, 720, 1440, LifetimeUntilBlocked}

func ValidateLifetime(minutes int) error {
	if minutes < LifetimeUntilBlocked {
		return Reject(ErrInvalidLifetime, "lifetime must be positive minutes, 0 or -1, got %d", minutes)
	}
	if minutes > MaxLifetimeMinutes {
		return Reject(ErrInvalidLifetime, "lifetime must be at most %d minutes, got %d", MaxLifetimeMinutes, minutes)
	}
	return nil
}

// CloseAt returns the end time and recorded lifetime for a lifetime verdict.
// Positive minutes are measured from issue and capped at MaxLifetimeMinutes;
// 0 and -1 close at now.
func CloseAt(issued time.Time, minutes int, now time.Time) (time.Time, int) {
	if minutes > 0 {
		minutes = min(minutes, MaxLifetimeMinutes)
		return issued.Add(time.Duration(minutes) * time.Minute), minutes
	}
	return now, ElapsedMinutes(issued, now)
}

func ElapsedMinutes(from, to time.Time) int {
	elapsed := int(to.Sub(from) / time.Minute)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
