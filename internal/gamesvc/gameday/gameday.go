// Package gameday holds the calendar rules of the daily game: id derivation,
// the evening cutoff that rolls betting over to the next day, and slot start times.
package gameday

import (
	"fmt"
	"strings"
	"time"
)

const (
	CutoffHour   = 17
	CutoffMinute = 15

	// slot 1 starts at 12:00, slot 5 at 16:00
	FirstSlotHour = 12
	Slots         = 5
)

// GameID formats the id of the game played on the calendar date of t.
func GameID(t time.Time) string {
	return "GAME" + t.Format("02012006")
}

// ValidGameID reports whether id is GAME followed by a real ddmmyyyy date.
func ValidGameID(id string) bool {
	date, ok := strings.CutPrefix(id, "GAME")
	if !ok || len(date) != 8 {
		return false
	}
	_, err := time.Parse("02012006", date)
	return err == nil
}

// PastCutoff reports whether t is at or after 17:15 on its own date.
func PastCutoff(t time.Time) bool {
	return t.Hour() > CutoffHour || (t.Hour() == CutoffHour && t.Minute() >= CutoffMinute)
}

// EffectiveDate is the date bets placed at t belong to.
func EffectiveDate(t time.Time) time.Time {
	if PastCutoff(t) {
		return t.AddDate(0, 0, 1)
	}
	return t
}

// CurrentGameID returns today's id before the cutoff and tomorrow's after it.
// t must already be in the game's time zone.
func CurrentGameID(t time.Time) string {
	return GameID(EffectiveDate(t))
}

// NextGameID is the id of tomorrow's game relative to t, regardless of the cutoff.
func NextGameID(t time.Time) string {
	return GameID(t.AddDate(0, 0, 1))
}

// SlotTime returns the next start of slot that is strictly after now.
func SlotTime(now time.Time, slot int) (time.Time, error) {
	if slot < 1 || slot > Slots {
		return time.Time{}, fmt.Errorf("slot %d out of range 1..%d", slot, Slots)
	}
	y, m, d := now.Date()
	st := time.Date(y, m, d, FirstSlotHour+slot-1, 0, 0, 0, now.Location())
	if !st.After(now) {
		st = st.AddDate(0, 0, 1)
	}
	return st, nil
}

// Clock yields the current time in the game's time zone.
type Clock struct {
	Location *time.Location
	Now      func() time.Time
}

func NewClock(loc *time.Location) *Clock {
	return &Clock{Location: loc, Now: time.Now}
}

func (c *Clock) Time() time.Time {
	return c.Now().In(c.Location)
}
