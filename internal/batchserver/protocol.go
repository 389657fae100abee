// Package batchserver exposes an already-compiled program over a
// WebSocket: a client opens one connection and streams any number of
// batchproto.Request frames, each describing a tape/pointer/input/config
// to run the program against, getting back one batchproto.Response frame
// per request. It is the streaming counterpart of cmd/bf's --batch mode,
// sharing the same wire schema (see internal/batchproto) so a client can
// switch transports without touching its request/response handling.
package batchserver
