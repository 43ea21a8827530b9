package worker

import (
	"context"
	"errors"
	"net"
	"syscall"

	"github.com/inkwell/blogmind/internal/errs"
)

// User-facing messages for worker failures
const (
	MessageUnreachable = "AI Agent Service is offline. Please ensure the agent-service container is running."
	MessageTimeout     = "AI timed out while thinking. Please try a simpler question."
	MessageError       = "AI Assistant is currently busy or unreachable. Please try again in a moment."
)

// Classify maps a worker call failure to its error kind, keeping the raw
// failure as the cause. A nil error stays nil.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var classified *errs.Error
	if errors.As(err, &classified) {
		return err
	}

	switch {
	case isTimeout(err):
		return errs.Wrap(errs.KindWorkerTimeout, MessageTimeout, err)
	case isUnreachable(err):
		return errs.Wrap(errs.KindWorkerUnreachable, MessageUnreachable, err)
	default:
		return errs.Wrap(errs.KindWorkerError, MessageError, err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isUnreachable(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
