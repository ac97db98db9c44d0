// Package redisstream mirrors xevents emissions into a Redis stream.
//
// The Recorder is an xevents.Observer: it only reacts to EventEmitted, so
// rejected payloads never reach Redis. Entries are written in pipelined
// batches by a background goroutine and trimmed with an approximate MAXLEN,
// giving operators a cross-restart view of recent portal traffic that the
// bounded in-process history cannot offer.
//
// Config keys accepted by ConfigFromMap:
//   - addr: "host:port" (default "127.0.0.1:6379")
//   - stream: stream key (default "xevents:history")
//   - max_len_approx: approximate stream cap, 0 for none (default 10000)
//   - codec: payload codec name (default "json")
//   - buffer_size: queued emissions before dropping (default 1024)
//   - batch_size: XADDs per pipeline (default 64)
//   - write_timeout: per-batch deadline (default 2s)
//
// Example:
//
//	rec, err := redisstream.NewRecorder(redisstream.Defaults(), logger)
//	if err != nil {
//		return err
//	}
//	bus, err := xevents.NewBusBuilder().WithObserver(rec).Build()
package redisstream
