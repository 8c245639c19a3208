// Package scraper owns the harvest pipeline.
//
// The Harvester wires the discovery sources, the shared reference queue, the
// log resolver and the persistent store together, then runs them in one of
// three modes:
//
//   - schedule: every source and the resolver run as periodic jobs on the
//     scheduler until the store reaches its size budget.
//   - recent: fetch the most recent replays, resolve them, sleep, repeat.
//   - format: search every configured format once, resolve, exit.
//
// Usage:
//
//	h, err := scraper.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer h.Close()
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
//	defer stop()
//	if err := h.Run(ctx); err != nil {
//	    log.Fatal(err)
//	}
//
// Shutdown:
//
// Reaching the size budget and receiving a signal both end Run without an
// error. References still queued at that point are written to the snapshot
// file and pushed back onto the queue at the next start.
package scraper
