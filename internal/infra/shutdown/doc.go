// Package shutdown coordinates graceful process termination.
//
// Hooks registered with OnShutdown run in reverse order once SIGINT or
// SIGTERM arrives, the parent context ends, or Trigger is called. They
// share a context bounded by the handler timeout.
//
// Usage:
//
//	h := shutdown.NewHandler(10*time.Second, logger)
//	h.OnShutdown("listener", srv.Shutdown)
//	err := h.Wait(ctx)
package shutdown
