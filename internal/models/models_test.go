package models

import (
	"testing"
	"time"
)

func TestCanViewProfile(t *testing.T) {
	owner := User{ID: "u1", Visibility: VisibilityPrivate}

	if owner.CanViewProfile("u2", false) {
		t.Fatal("private profile visible to stranger")
	}
	if !owner.CanViewProfile("u1", false) {
		t.Fatal("private profile not visible to owner")
	}

	owner.Visibility = VisibilityFollowersOnly
	if owner.CanViewProfile("u2", false) {
		t.Fatal("followers-only profile visible to non-follower")
	}
	if !owner.CanViewProfile("u2", true) {
		t.Fatal("followers-only profile not visible to follower")
	}

	owner.Visibility = VisibilityPublic
	if !owner.CanViewProfile("u2", false) {
		t.Fatal("public profile not visible")
	}
}

func TestInQuietHoursSameDay(t *testing.T) {
	p := NotificationPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "22:00",
		QuietHoursEnd:     "23:30",
	}

	at := func(hhmm string) time.Time {
		tm, _ := time.Parse("15:04", hhmm)
		return tm
	}

	if !p.InQuietHours(at("22:30")) {
		t.Fatal("22:30 should be quiet")
	}
	if p.InQuietHours(at("21:59")) {
		t.Fatal("21:59 should not be quiet")
	}
}

func TestInQuietHoursCrossMidnight(t *testing.T) {
	p := NotificationPreference{
		QuietHoursEnabled: true,
		QuietHoursStart:   "23:00",
		QuietHoursEnd:     "07:00",
	}

	at := func(hhmm string) time.Time {
		tm, _ := time.Parse("15:04", hhmm)
		return tm
	}

	if !p.InQuietHours(at("02:00")) {
		t.Fatal("02:00 should be quiet")
	}
	if !p.InQuietHours(at("23:30")) {
		t.Fatal("23:30 should be quiet")
	}
	if p.InQuietHours(at("12:00")) {
		t.Fatal("noon should not be quiet")
	}
}

func TestInQuietHoursDisabled(t *testing.T) {
	p := NotificationPreference{QuietHoursStart: "00:00", QuietHoursEnd: "23:59"}
	if p.InQuietHours(time.Now()) {
		t.Fatal("quiet hours honored while disabled")
	}
}

func TestAllowsInApp(t *testing.T) {
	p := DefaultPreferences("u1")
	if !p.AllowsInApp(NotifyLike) {
		t.Fatal("default preferences should allow likes")
	}
	p.InAppLikes = false
	if p.AllowsInApp(NotifyLike) {
		t.Fatal("disabled like preference ignored")
	}
	if !p.AllowsInApp(NotifyFollow) {
		t.Fatal("follow preference affected by like toggle")
	}
}

func TestValidCategory(t *testing.T) {
	if !ValidCategory(CategoryQuestion) {
		t.Fatal("question should be a valid category")
	}
	if ValidCategory("memes") {
		t.Fatal("unknown category accepted")
	}
}
