package anyauth_test

import (
	"testing"
	"time"

	aa "github.com/workpail/anyauth"
)

func TestCacheRateLimiter(t *testing.T) {
	limiter := aa.NewCacheRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("1.2.3.4:local") {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if limiter.Allow("1.2.3.4:local") {
		t.Error("fourth attempt in window should be blocked")
	}

	// Other keys are unaffected.
	if !limiter.Allow("5.6.7.8:local") {
		t.Error("different key should have its own window")
	}
}

func TestCacheRateLimiter_WindowReset(t *testing.T) {
	limiter := aa.NewCacheRateLimiter(1, 30*time.Millisecond)

	if !limiter.Allow("k") {
		t.Fatal("first attempt should pass")
	}
	if limiter.Allow("k") {
		t.Fatal("second attempt should be blocked")
	}

	time.Sleep(60 * time.Millisecond)
	if !limiter.Allow("k") {
		t.Error("attempt after window expiry should pass")
	}
}
