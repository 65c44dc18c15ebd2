package engine

import (
	"golang.org/x/sys/unix"
)

// addressSpaceLimitBytes bounds the builder subprocess's virtual memory so a
// runaway compile cannot take down the host.
const addressSpaceLimitBytes = 2 << 30 // 2 GiB

// withAddressSpaceLimit runs fn with the process-wide RLIMIT_AS set to
// addressSpaceLimitBytes, restoring the prior limit on every exit path,
// including a panic inside fn.
func withAddressSpaceLimit(fn func() error) error {
	var prior unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_AS, &prior); err != nil {
		return fn()
	}

	limited := unix.Rlimit{Cur: addressSpaceLimitBytes, Max: prior.Max}
	if limited.Max != 0 && limited.Cur > limited.Max {
		limited.Cur = limited.Max
	}
	if err := unix.Setrlimit(unix.RLIMIT_AS, &limited); err != nil {
		return fn()
	}

	defer func() {
		_ = unix.Setrlimit(unix.RLIMIT_AS, &prior)
	}()

	return fn()
}
