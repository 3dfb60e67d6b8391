package emergency

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func newTestDetector(t *testing.T) (*Detector, *time.Time) {
	t.Helper()
	d, err := NewDetector(DefaultKeywords(), DefaultWorseningPhrases(), DefaultDebounceWindow)
	if err != nil {
		t.Fatalf("NewDetector: %v", err)
	}
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := &now
	d.WithClock(func() time.Time { return *current })
	return d, current
}

func TestDetectEmergencyKeyword(t *testing.T) {
	d, _ := newTestDetector(t)

	result := d.Detect("I have chest pain", "u1")
	if !result.IsEmergency {
		t.Fatalf("expected emergency: %+v", result)
	}
	if result.Severity != SeverityVeryUrgent {
		t.Fatalf("expected very_urgent, got %s", result.Severity)
	}
	if len(result.Concerns) != 1 || result.Concerns[0] != "chest pain" {
		t.Fatalf("unexpected concerns %v", result.Concerns)
	}
	if !result.ShouldAlert {
		t.Fatalf("first alert should be permitted: %+v", result)
	}
}

func TestDetectNonEmergency(t *testing.T) {
	d, _ := newTestDetector(t)
	result := d.Detect("I had a lovely walk this morning", "u1")
	if result.IsEmergency || result.ShouldAlert || result.Severity != SeverityManageable {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(result.Concerns) != 0 {
		t.Fatalf("unexpected concerns %v", result.Concerns)
	}
}

func TestDebounceSuppressesRepeatAlerts(t *testing.T) {
	d, now := newTestDetector(t)

	first := d.Detect("I have chest pain", "u1")
	if !first.ShouldAlert {
		t.Fatalf("first alert suppressed: %+v", first)
	}

	*now = now.Add(time.Minute)
	second := d.Detect("The chest pain is still there", "u1")
	if !second.IsEmergency {
		t.Fatalf("repeat message must still report emergency: %+v", second)
	}
	if second.ShouldAlert {
		t.Fatalf("repeat alert inside window must be suppressed: %+v", second)
	}

	// Worsening overrides the window.
	worse := d.Detect("The chest pain is getting worse", "u1")
	if !worse.ShouldAlert || !worse.IsWorsening {
		t.Fatalf("worsening message must alert: %+v", worse)
	}

	// A different user has independent state.
	other := d.Detect("I have chest pain", "u2")
	if !other.ShouldAlert {
		t.Fatalf("other user suppressed: %+v", other)
	}
}

func TestDebounceWindowExpires(t *testing.T) {
	d, now := newTestDetector(t)

	if !d.Detect("I have chest pain", "u1").ShouldAlert {
		t.Fatalf("first alert suppressed")
	}
	*now = now.Add(DefaultDebounceWindow + time.Second)
	if !d.Detect("I have chest pain again", "u1").ShouldAlert {
		t.Fatalf("alert after window must be permitted")
	}
}

func TestWordBoundaryMatching(t *testing.T) {
	d, _ := newTestDetector(t)

	// "pressured" must not match the keyword "pressure".
	result := d.Detect("I feel pressured by all these forms", "u1")
	if result.IsEmergency {
		t.Fatalf("substring match leaked through: %+v", result)
	}

	result = d.Detect("There is pressure in my chest", "u1")
	if !result.IsEmergency || result.Concerns[0] != "pressure" {
		t.Fatalf("boundary match missed: %+v", result)
	}

	result = d.Detect("I can't breathe", "u2")
	if !result.IsEmergency {
		t.Fatalf("apostrophe phrase missed: %+v", result)
	}
}

func TestDetectWithoutUserIDNeverAlerts(t *testing.T) {
	d, _ := newTestDetector(t)
	result := d.Detect("I think I am having a stroke", "")
	if !result.IsEmergency {
		t.Fatalf("expected emergency: %+v", result)
	}
	if result.ShouldAlert {
		t.Fatalf("no user id means no debounce state and no alert: %+v", result)
	}
}

func TestNewDetectorValidation(t *testing.T) {
	if _, err := NewDetector(nil, nil, 0); err == nil {
		t.Fatalf("expected error for empty keyword list")
	}
	if _, err := NewDetector([]string{"stroke", "  "}, nil, 0); err == nil {
		t.Fatalf("expected error for blank keyword")
	}
}

func TestConcurrentDetectSingleAlert(t *testing.T) {
	d, _ := newTestDetector(t)

	const goroutines = 16
	var wg sync.WaitGroup
	alerts := make(chan bool, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			r := d.Detect(fmt.Sprintf("chest pain message %d", n), "u1")
			alerts <- r.ShouldAlert
		}(i)
	}
	wg.Wait()
	close(alerts)

	permitted := 0
	for a := range alerts {
		if a {
			permitted++
		}
	}
	if permitted != 1 {
		t.Fatalf("expected exactly one permitted alert, got %d", permitted)
	}
}
