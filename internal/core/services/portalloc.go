package services

import (
	"fmt"
	"net"

	"github.com/cyberpaas/tenantdock/internal/core/domain"
)

// FindFreePort returns the first port in [start, start+maxAttempts) on which
// a local TCP bind succeeds. The probe listener is released immediately, so
// the result is a best-effort hint: another process may take the port before
// the caller binds it. The container deploy remains authoritative and a late
// port conflict from the runtime must be treated as retryable.
func FindFreePort(start, maxAttempts int) (int, error) {
	for port := start; port < start+maxAttempts; port++ {
		if portAvailable(port) {
			return port, nil
		}
	}
	return 0, fmt.Errorf("scanned %d-%d: %w", start, start+maxAttempts-1, domain.ErrNoAvailablePort)
}

func portAvailable(port int) bool {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return false
	}
	l.Close()
	return true
}
