package browser

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
)

// WatchSignals shuts s down when one of sigs arrives (os.Interrupt and
// SIGTERM when none are given) or ctx is done. Shutdown errors are logged,
// never raised.
//
// The returned context is derived from ctx and is cancelled before the
// shutdown starts, so callers can stop issuing work that would start a
// new browser. The stop function detaches the watcher, cancels the
// context and waits for the watcher to exit; calling it more than once is
// safe.
func WatchSignals(ctx context.Context, s *Session, sigs ...os.Signal) (context.Context, func()) {
	if len(sigs) == 0 {
		sigs = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}

	watchCtx, cancel := context.WithCancel(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, sigs...)

	quit := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer signal.Stop(sigChan)

		select {
		case sig := <-sigChan:
			s.logger.Infof("received %v, shutting down browser", sig)
		case <-ctx.Done():
		case <-quit:
			return
		}

		cancel()
		if err := s.Shutdown(); err != nil {
			s.logger.Errorf("shutdown on exit: %v", err)
		}
	}()

	var once sync.Once
	return watchCtx, func() {
		once.Do(func() { close(quit) })
		<-done
		cancel()
	}
}
