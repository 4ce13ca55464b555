package scoreboard

import (
	"errors"

	"golang.org/x/sys/unix"
)

// SignalHandler services signals that interrupted a blocking call. It must
// return so the interrupted call can be issued again.
type SignalHandler interface {
	HandleSignals()
}

// SignalFunc adapts a plain function to SignalHandler.
type SignalFunc func()

func (f SignalFunc) HandleSignals() { f() }

type ignoreSignals struct{}

func (ignoreSignals) HandleSignals() {}

// retry runs fn until it fails with something other than EINTR.
func retry(h SignalHandler, fn func() error) error {
	for {
		err := fn()
		if !errors.Is(err, unix.EINTR) {
			return err
		}
		h.HandleSignals()
	}
}
