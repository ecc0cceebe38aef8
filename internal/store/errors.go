package store

import (
	"fmt"
	"strings"

	"github.com/containerd/errdefs"
)

// IsBusy reports whether err is a SQLite contention error
// (SQLITE_BUSY or "database is locked").
func IsBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

// classify tags contention errors as errdefs.ErrUnavailable so callers can
// tell a transient lock from a real failure without parsing messages.
func classify(op string, err error) error {
	if IsBusy(err) {
		return fmt.Errorf("%s: %w: %w", op, errdefs.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
