package assetid_test

import (
	"strings"
	"testing"

	"vodflow/stream-api/utils/assetid"
)

func TestNew(t *testing.T) {
	id := assetid.New()
	if !strings.HasPrefix(id, "vod_") {
		t.Errorf("New() = %q, want vod_ prefix", id)
	}
	if len(id) != len("vod_")+26 {
		t.Errorf("New() = %q, want 26 character ULID after prefix", id)
	}
	if !assetid.IsValid(id) {
		t.Errorf("New() produced an id IsValid rejects: %q", id)
	}
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := assetid.New()
		if _, dup := seen[id]; dup {
			t.Fatalf("duplicate id %q after %d generations", id, i)
		}
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"generated id", assetid.New(), true},
		{"missing prefix", "01hqv3x7e8r9t2y4u6i8o0p1q3", false},
		{"wrong prefix", "ep_01hqv3x7e8r9t2y4u6i8o0p1q3", false},
		{"empty", "", false},
		{"prefix only", "vod_", false},
		{"garbage after prefix", "vod_not-a-ulid", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := assetid.IsValid(tt.value); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}

func TestParse_RoundTrip(t *testing.T) {
	id := assetid.New()
	parsed, err := assetid.Parse(id)
	if err != nil {
		t.Fatalf("Parse(%q) error = %v", id, err)
	}
	if got := "vod_" + strings.ToLower(parsed.String()); got != id {
		t.Errorf("round trip = %q, want %q", got, id)
	}
}
