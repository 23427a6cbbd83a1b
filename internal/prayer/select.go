package prayer

import "time"

// AnnounceWithin is how close the next prayer must be before a countdown
// view switches to its announcement state.
const AnnounceWithin = 5 * time.Minute

// Selection is the derived "current / next" state for a single instant.
type Selection struct {
	Now       time.Time
	Current   *Prayer
	Next      *Prayer
	Remaining time.Duration
	// Announce is set when the next prayer is less than AnnounceWithin away.
	Announce bool
}

// Select determines the current and next prayer at now.
//
// today holds the ordered prayers of now's calendar date. If now is before the
// first of them, the current prayer is the last entry of yesterday. If every
// prayer today has started, the next prayer is the first entry of tomorrow and
// the remaining time is measured against tomorrow's timestamp.
//
// Select is pure: it holds no state and reads no clock.
func Select(yesterday, today, tomorrow []Prayer, now time.Time) Selection {
	sel := Selection{Now: now}

	sel.Current = CurrentPrayer(today, now)
	if sel.Current == nil && len(yesterday) > 0 {
		sel.Current = &yesterday[len(yesterday)-1]
	}

	sel.Next = NextPrayer(today, now)
	if sel.Next == nil {
		sel.Next = NextPrayer(tomorrow, now)
	}

	if sel.Next != nil {
		sel.Remaining = sel.Next.Time.Sub(now)
		sel.Announce = sel.Remaining > 0 && sel.Remaining < AnnounceWithin
	}

	return sel
}

// View is the polled "next prayer" view model.
type View struct {
	CurrentName string    `json:"currentPrayerName"`
	CurrentTime time.Time `json:"currentPrayerTimestamp,omitzero"`
	NextName    string    `json:"nextPrayerName"`
	NextTime    time.Time `json:"nextPrayerTimestamp,omitzero"`
	RemainingMs int64     `json:"timeRemainingMs"`
	Countdown   string    `json:"countdown"`
	Remaining   string    `json:"remaining"`
	Announce    bool      `json:"announce"`
}

// View flattens the selection. Countdown and Remaining both derive from
// RemainingMs.
func (s Selection) View() View {
	v := View{Announce: s.Announce}
	if s.Current != nil {
		v.CurrentName = s.Current.Name
		v.CurrentTime = s.Current.Time
	}
	if s.Next != nil {
		v.NextName = s.Next.Name
		v.NextTime = s.Next.Time
		v.RemainingMs = s.Remaining.Milliseconds()
	}
	d := time.Duration(v.RemainingMs) * time.Millisecond
	v.Countdown = FormatClock(d)
	v.Remaining = FormatRemaining(d)
	return v
}
