package gameday

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCurrentGameIDCutoff(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"before cutoff", time.Date(2024, 3, 1, 17, 14, 0, 0, ist), "GAME01032024"},
		{"at cutoff", time.Date(2024, 3, 1, 17, 15, 0, 0, ist), "GAME02032024"},
		{"late evening", time.Date(2024, 3, 1, 23, 59, 59, 0, ist), "GAME02032024"},
		{"early morning", time.Date(2024, 3, 1, 0, 0, 0, 0, ist), "GAME01032024"},
		{"hour 18 minute 0", time.Date(2024, 3, 1, 18, 0, 0, 0, ist), "GAME02032024"},
		{"month rollover", time.Date(2024, 2, 29, 20, 0, 0, 0, ist), "GAME01032024"},
		{"year rollover", time.Date(2024, 12, 31, 17, 30, 0, 0, ist), "GAME01012025"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CurrentGameID(tc.at))
		})
	}
}

func TestNextGameIDIgnoresCutoff(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	assert.Equal(t, "GAME02032024", NextGameID(at))
}

func TestSlotTime(t *testing.T) {
	now := time.Date(2024, 3, 1, 13, 30, 0, 0, time.UTC)

	st, err := SlotTime(now, 1)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 12, 0, 0, 0, time.UTC), st, "12:00 already passed")

	st, err = SlotTime(now, 3)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC), st)

	exact := time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC)
	st, err = SlotTime(exact, 5)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 2, 16, 0, 0, 0, time.UTC), st, "start equal to now rolls over")

	_, err = SlotTime(now, 0)
	assert.Error(t, err)
	_, err = SlotTime(now, 6)
	assert.Error(t, err)
}

func TestClockUsesLocation(t *testing.T) {
	ist, err := time.LoadLocation("Asia/Kolkata")
	require.NoError(t, err)

	c := NewClock(ist)
	c.Now = func() time.Time { return time.Date(2024, 3, 1, 11, 50, 0, 0, time.UTC) }

	// 11:50 UTC is 17:20 in Kolkata
	assert.Equal(t, "GAME02032024", CurrentGameID(c.Time()))
}

func TestValidGameID(t *testing.T) {
	for id, want := range map[string]bool{
		"GAME01032024": true,
		"GAME29022024": true,
		"GAME30022024": false,
		"GAME-bogus":   false,
		"GAME0103202":  false,
		"game01032024": false,
		"01032024":     false,
		"":             false,
	} {
		assert.Equal(t, want, ValidGameID(id), id)
	}
}
