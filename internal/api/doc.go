// Package api is the HTTP control surface of the IR bridge.
//
// Every control action is reachable as
//
//	GET|POST /api/v1/ir/{action}?name=...&old=...&new=...&timeout_ms=...&wait=true
//
// with parameters in the query string or a form body. Replies are plain
// text status messages; list replies with the ordered JSON command
// document. The response kind is repeated in the X-IR-Status header.
// The root paths /learn, /send, /list and /reset map to the same
// handlers.
//
// GET /api/v1/events upgrades to a WebSocket that streams every
// dispatcher event as JSON. POST /api/v1/dev/frame injects a received
// frame when the simulated transceiver driver is active.
//
// When security.jwt.secret is set, all routes except /api/v1/health
// require "Authorization: Bearer <token>" (or ?token= for WebSockets).
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api
