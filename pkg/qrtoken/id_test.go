package qrtoken

import (
	"regexp"
	"testing"
)

var idPattern = regexp.MustCompile(`^EMG\d{14}[A-Z0-9]{6}$`)

func TestEmergencyIDFormat(t *testing.T) {
	for i := 0; i < 100; i++ {
		id := NewEmergencyID()
		if !idPattern.MatchString(id) {
			t.Fatalf("id %q does not match pattern", id)
		}
	}
}

func TestEmergencyIDCollisions(t *testing.T) {
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		id := NewEmergencyID()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id after %d draws: %s", i, id)
		}
		seen[id] = struct{}{}
	}
}
