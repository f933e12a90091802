package logger

import "testing"

func TestAnonymizeEmail(t *testing.T) {
	got := Anonymize("password reset requested for jane@example.com")
	want := "password reset requested for [REDACTED_EMAIL]"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAnonymizeToken(t *testing.T) {
	got := Anonymize("rejected token eyJhbGciOiJIUzI1NiJ9.payload.sig")
	want := "rejected token [REDACTED_TOKEN]"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestAnonymizePlainText(t *testing.T) {
	msg := "feed retrieved with limit=50"
	if got := Anonymize(msg); got != msg {
		t.Fatalf("plain message was modified: %q", got)
	}
}
