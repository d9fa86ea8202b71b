package graceful

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Context returns a context canceled on SIGINT or SIGTERM. Calling the
// returned cancel also stops the signal subscription.
func Context(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		defer signal.Stop(sigChan)
		select {
		case sig := <-sigChan:
			log.Printf("Received %s, starting graceful shutdown...", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	return ctx, cancel
}

// Shutdown runs the steps in order and gives up waiting after timeout. It
// reports whether every step finished in time.
func Shutdown(timeout time.Duration, steps ...func()) bool {
	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, step := range steps {
			step()
		}
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		log.Printf("Shutdown did not finish within %s", timeout)
		return false
	}
}
