// Package capture learns IR commands.
//
// A learn request starts a session on the Engine. The dispatcher then calls
// Poll once per tick; each call reads whatever frames the receiver has
// ready without blocking. The first well-formed frame is normalised by the
// timing codec and written to the command store. Garbled frames are
// skipped and listening continues until the deadline, measured against an
// injected Clock so tests control time.
//
// A session holds the transceiver token from Start until it ends, so
// playback cannot run while the receiver is armed.
package capture
