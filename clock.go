package workqueue

import "github.com/zoobzio/clockz"

// Clock is the injected time source spec section 2 calls out as an
// external collaborator: a wallclock-based reader used only for
// relative timeouts in condition waits. WorkQueue defaults to the real
// clock; tests may substitute clockz.NewFakeClock() to control timeout
// expiry deterministically.
type Clock = clockz.Clock

// defaultClock is the wallclock-based reader used when no Clock is
// injected at Init.
var defaultClock Clock = clockz.RealClock
