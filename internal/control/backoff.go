package control

import (
	"time"

	"github.com/me-sharif-hasan/tunneller/pkg/constants"
)

// Backoff returns the reconnect delay after n consecutive failed sessions
// (n >= 1): min(3 * 2^min(n-1, 5), 60) seconds, i.e. 3, 6, 12, 24, 48, 60,
// 60, ... . n resets to 0 after any clean REGISTERED session.
func Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	doublings := n - 1
	if doublings > constants.BackoffMaxDoublings {
		doublings = constants.BackoffMaxDoublings
	}
	delay := constants.BackoffBase * time.Duration(1<<uint(doublings))
	if delay > constants.BackoffCap {
		delay = constants.BackoffCap
	}
	return delay
}
