package process

// Notes:
// - Only non-existent and non-positive PIDs are used. A real PID (or 0, which
//   would target the test's own process group) cannot be killed safely in a
//   unit test; renderer shutdown covers the real path.

import "testing"

func TestKillProcessGroup_IgnoresInvalidPID(t *testing.T) {
	t.Parallel()

	for _, pid := range []int{-1, 0, 999999999} {
		KillProcessGroup(pid)
	}
}
