package user

import (
	"testing"
	"time"

	"github.com/volatiletech/null/v8"
)

func TestUser_UpdateStreak(t *testing.T) {
	now := time.Date(2021, time.March, 10, 15, 4, 5, 0, time.UTC)
	today := time.Date(2021, time.March, 10, 0, 0, 0, 0, time.UTC)
	yesterday := today.AddDate(0, 0, -1)
	threeDaysAgo := today.AddDate(0, 0, -3)

	tests := []struct {
		name           string
		streakDays     int
		lastStreakDate null.Time
		wantDays       int
	}{
		{name: "first ever call", wantDays: 1},
		{name: "consecutive day", streakDays: 4, lastStreakDate: null.TimeFrom(yesterday), wantDays: 5},
		{name: "gap resets", streakDays: 12, lastStreakDate: null.TimeFrom(threeDaysAgo), wantDays: 1},
		{name: "same day no-op", streakDays: 4, lastStreakDate: null.TimeFrom(today), wantDays: 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr := User{StreakDays: tt.streakDays, LastStreakDate: tt.lastStreakDate}
			usr.UpdateStreak(now)
			if usr.StreakDays != tt.wantDays {
				t.Errorf("StreakDays = %d, want %d", usr.StreakDays, tt.wantDays)
			}
			if !usr.LastStreakDate.Valid || !usr.LastStreakDate.Time.Equal(today) {
				t.Errorf("LastStreakDate = %v, want %v", usr.LastStreakDate, today)
			}
		})
	}
}

func TestUser_UpdateStreak_idempotentSameDay(t *testing.T) {
	now := time.Date(2021, time.March, 10, 8, 0, 0, 0, time.UTC)
	usr := User{StreakDays: 6, LastStreakDate: null.TimeFrom(time.Date(2021, time.March, 9, 0, 0, 0, 0, time.UTC))}

	usr.UpdateStreak(now)
	if usr.StreakDays != 7 {
		t.Fatalf("StreakDays = %d, want 7", usr.StreakDays)
	}
	usr.UpdateStreak(now.Add(5 * time.Hour)) // later the same day
	if usr.StreakDays != 7 {
		t.Errorf("second same-day call changed StreakDays = %d, want 7", usr.StreakDays)
	}
}
