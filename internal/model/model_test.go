package model

import (
	"regexp"
	"testing"
)

// crockfordBase32 matches valid ULID strings (26 chars, Crockford Base32 alphabet).
var crockfordBase32 = regexp.MustCompile(`^[0123456789ABCDEFGHJKMNPQRSTVWXYZ]{26}$`)

func TestNewIDFormat(t *testing.T) {
	id := NewID()
	if !crockfordBase32.MatchString(id) {
		t.Errorf("NewID() = %q, does not match Crockford Base32 ULID format", id)
	}
}

func TestNewIDUniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewID()
		if seen[id] {
			t.Fatalf("NewID() produced duplicate: %s", id)
		}
		seen[id] = true
	}
}

func TestValidTransition(t *testing.T) {
	tests := []struct {
		from, to string
		want     bool
	}{
		{StatusQueued, StatusRunning, true},
		{StatusQueued, StatusCancelled, true},
		{StatusQueued, StatusError, true},
		{StatusQueued, StatusDone, false},
		{StatusRunning, StatusDone, true},
		{StatusRunning, StatusError, true},
		{StatusRunning, StatusCancelled, true},
		{StatusRunning, StatusQueued, false},
		{StatusDone, StatusRunning, false},
		{StatusDone, StatusQueued, false},
		{StatusError, StatusRunning, false},
		{StatusCancelled, StatusRunning, false},
		{StatusCancelled, StatusDone, false},
	}
	for _, tt := range tests {
		if got := ValidTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("ValidTransition(%q, %q) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, status := range []string{StatusDone, StatusError, StatusCancelled} {
		if !Terminal(status) {
			t.Errorf("Terminal(%q) = false, want true", status)
		}
	}
	for _, status := range []string{StatusQueued, StatusRunning} {
		if Terminal(status) {
			t.Errorf("Terminal(%q) = true, want false", status)
		}
	}
}

func TestValidJobType(t *testing.T) {
	for _, jt := range JobTypes {
		if !ValidJobType(jt) {
			t.Errorf("ValidJobType(%q) = false, want true", jt)
		}
	}
	if ValidJobType("vm") {
		t.Error("ValidJobType(\"vm\") = true, want false")
	}
}

func TestAssetKindForJob(t *testing.T) {
	tests := []struct {
		jobType string
		want    string
	}{
		{JobCopy, AssetCopy},
		{JobImage, AssetImage},
		{JobInpaint, AssetImage},
		{JobStoryboard, AssetVideo},
		{JobT2V, AssetVideo},
	}
	for _, tt := range tests {
		if got := AssetKindForJob(tt.jobType); got != tt.want {
			t.Errorf("AssetKindForJob(%q) = %q, want %q", tt.jobType, got, tt.want)
		}
	}
}

func TestParamsRoundTrip(t *testing.T) {
	seed := int64(42)
	raw, err := EncodeParams(ImageParams{
		Prompt:   "red ball",
		Platform: "9:16",
		Mode:     ModeDraft,
		Seed:     &seed,
	})
	if err != nil {
		t.Fatalf("EncodeParams: %v", err)
	}

	var got ImageParams
	if err := DecodeParams(raw, &got); err != nil {
		t.Fatalf("DecodeParams: %v", err)
	}
	if got.Prompt != "red ball" || got.Platform != "9:16" || got.Mode != ModeDraft {
		t.Errorf("round trip = %+v", got)
	}
	if got.Seed == nil || *got.Seed != 42 {
		t.Errorf("seed = %v, want 42", got.Seed)
	}
}
