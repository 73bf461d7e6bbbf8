package roomcode

import (
	"errors"
	"strings"
	"testing"
)

func TestGenerate_UsesAlphabetAndLength(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := Generate(func(string) (bool, error) { return false, nil })
		if err != nil {
			t.Fatalf("Generate: %v", err)
		}
		if len(code) != Length {
			t.Fatalf("len(%q) = %d", code, len(code))
		}
		for _, c := range code {
			if !strings.ContainsRune(Alphabet, c) {
				t.Fatalf("code %q has %q outside alphabet", code, c)
			}
		}
	}
}

func TestGenerate_RetriesOnCollision(t *testing.T) {
	calls := 0
	code, err := Generate(func(string) (bool, error) {
		calls++
		return calls < 3, nil
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if calls != 3 || len(code) != Length {
		t.Fatalf("calls=%d code=%q", calls, code)
	}
}

func TestGenerate_FallbackAppendsCharacter(t *testing.T) {
	calls := 0
	code, err := Generate(func(string) (bool, error) {
		calls++
		return true, nil
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if calls != maxAttempts {
		t.Fatalf("calls = %d, want %d", calls, maxAttempts)
	}
	if len(code) != Length+1 {
		t.Fatalf("fallback code %q should have %d chars", code, Length+1)
	}
}

func TestGenerate_PropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	if _, err := Generate(func(string) (bool, error) { return false, boom }); !errors.Is(err, boom) {
		t.Fatalf("expected lookup error, got %v", err)
	}
}
