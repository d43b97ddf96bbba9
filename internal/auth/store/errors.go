package store

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// MapTimeout wraps deadline and network timeout errors in ErrTimeout so
// callers can tell them apart from data errors. Other errors pass through.
func MapTimeout(err error) error {
	if err == nil || errors.Is(err, ErrTimeout) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	return err
}
