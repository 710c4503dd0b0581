// Package command holds the durable set of learned IR commands.
//
// A command is a name plus the raw mark/space timings in microseconds. The
// whole set is kept as one JSON object, {"name": [µs, ...], ...}, in the
// "ir" namespace of the key-value backend under "codes.json". The object
// keeps insertion order, so listing returns commands in the order they
// were first learned.
//
// Every mutation rewrites the whole document before returning. A document
// that cannot be parsed at boot is logged with reason store_corrupt and
// replaced by an empty store; it never stops the process.
//
// Usage:
//
//	store := command.NewStore(kvstore.NewSQLite(db))
//	store.SetLogger(logger)
//	if err := store.Load(ctx); err != nil {
//	    return err
//	}
//	err := store.Put(ctx, "tv_power", []uint32{9000, 4500, 560})
package command
