package cmdutil

import (
	"os"
	"os/signal"
	"syscall"
)

// InterruptChan returns a channel that is closed when the process receives
// SIGINT or SIGTERM.
func InterruptChan() <-chan struct{} {
	interrupt := make(chan struct{})

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		close(interrupt)
	}()

	return interrupt
}
