//go:build property
// +build property

package store_test

import (
	"path/filepath"
	"testing"

	"github.com/jowpereira/bradax/pkg/store"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestAppendStream_CapSettles verifies §8's boundary behavior: after a
// burst of appends, a bounded stream's size never exceeds its cap and
// settles there once the burst is at least as large as the cap.
func TestAppendStream_CapSettles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("bounded stream never grows past cap and settles at it", prop.ForAll(
		func(cap int, burst int) bool {
			path := filepath.Join(t.TempDir(), "bounded.json")
			s, err := store.OpenAppendStream(path, cap)
			if err != nil {
				return false
			}
			for i := 0; i < burst; i++ {
				if err := s.Append(sample{ID: "x"}); err != nil {
					return false
				}
				if s.Len() > cap {
					return false
				}
			}
			return s.Len() == min(cap, burst)
		},
		gen.IntRange(1, 20),
		gen.IntRange(1, 60),
	))

	properties.TestingRun(t)
}
