// Package resp implements an incremental decoder and encoder for the RESP2
// subset used by this server, plus the bare length-prefixed blob framing
// used to carry a replication snapshot inline with the command stream.
package resp

// Frame is a decoded command: an array of opaque byte strings. SET, GET,
// XADD, etc. all arrive as a Frame; Frame[0] is the verb.
type Frame [][]byte

func (f Frame) String(i int) string {
	if i < 0 || i >= len(f) {
		return ""
	}
	return string(f[i])
}
