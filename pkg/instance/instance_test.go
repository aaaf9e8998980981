package instance

import "testing"

func TestGetIDPrefersDyno(t *testing.T) {
	t.Setenv("DYNO", "web.1")
	t.Setenv("OFFERPAY_INSTANCE_ID", "pod-a")
	if got := GetID(); got != "web.1" {
		t.Fatalf("expected dyno id, got %q", got)
	}
}

func TestGetIDFallsBackToInstanceID(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("OFFERPAY_INSTANCE_ID", "pod-a")
	if got := GetID(); got != "pod-a" {
		t.Fatalf("expected instance id, got %q", got)
	}
}

func TestGetIDNeverEmpty(t *testing.T) {
	t.Setenv("DYNO", "")
	t.Setenv("OFFERPAY_INSTANCE_ID", "")
	if GetID() == "" {
		t.Fatal("expected a non-empty id")
	}
}
