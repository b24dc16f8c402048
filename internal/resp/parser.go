package resp

import "bytes"

// Parser is an incremental RESP2 decoder. Feed appends newly read bytes;
// Drain extracts every complete frame currently buffered, leaving a partial
// trailing frame (if any) untouched for the next Feed/Drain round.
//
// Besides command arrays, Drain transparently recognizes the bare
// length-prefixed blob a primary sends right after FULLRESYNC (a `$<len>\r\n`
// header with no trailing CRLF): it is consumed silently and never produced
// as a Frame. Consuming that blob also resets the cumulative byte counter,
// since the replica's post-handshake offset must start from zero.
type Parser struct {
	buf    []byte
	offset int64
}

// NewParser returns a ready-to-use decoder.
func NewParser() *Parser {
	return &Parser{}
}

// Feed appends newly received bytes to the internal buffer.
func (p *Parser) Feed(data []byte) {
	p.buf = append(p.buf, data...)
}

// Offset returns the number of bytes ingested since the last reset (either
// an explicit Reset or an internally swallowed snapshot blob).
func (p *Parser) Offset() int64 {
	return p.offset
}

// Reset zeroes the cumulative offset counter without discarding buffered
// bytes; used once a replica has fully processed the handshake.
func (p *Parser) Reset() {
	p.offset = 0
}

func (p *Parser) consume(n int) {
	p.offset += int64(n)
	p.buf = p.buf[n:]
}

// Drain extracts every complete frame currently available. blob is
// non-nil when a bare snapshot payload was swallowed during this call;
// the caller both treats its presence as the end of handshake mode and,
// on the replica side, loads its bytes as the initial store.
func (p *Parser) Drain() (frames []Frame, blob []byte, err error) {
	for {
		if len(p.buf) == 0 {
			return frames, blob, nil
		}
		nl := bytes.IndexByte(p.buf, '\n')
		if nl < 0 {
			return frames, blob, nil
		}
		line := bytes.TrimSuffix(p.buf[:nl], []byte{'\r'})

		switch {
		case len(line) > 0 && line[0] == '*':
			n, ok := parseInt(line[1:])
			if !ok || n < 0 {
				p.consume(nl + 1)
				continue
			}
			frame, total, complete, malformed := p.tryParseArray(nl+1, n)
			if malformed {
				p.consume(nl + 1)
				continue
			}
			if !complete {
				return frames, blob, nil
			}
			p.consume(total)
			frames = append(frames, frame)

		case len(line) > 0 && line[0] == '$':
			n, ok := parseInt(line[1:])
			if !ok || n < 0 {
				p.consume(nl + 1)
				continue
			}
			need := nl + 1 + n
			if len(p.buf) < need {
				return frames, blob, nil
			}
			payload := make([]byte, n)
			copy(payload, p.buf[nl+1:need])
			p.consume(need)
			p.Reset()
			blob = payload

		default:
			// Simple/error/integer reply line (or garbage) received out of
			// an array context: noise, skip and resync.
			p.consume(nl + 1)
		}
	}
}

// tryParseArray parses n bulk-string pairs starting at absolute buffer
// offset start (just past the "*<n>\r\n" header line, which the caller
// consumes together with the array once it is complete).
// complete is false when more bytes are needed; malformed is true when the
// bytes present are not a valid bulk-string pair and the caller should
// resync by skipping only the initiating line.
func (p *Parser) tryParseArray(start int, n int) (frame Frame, total int, complete bool, malformed bool) {
	pos := start
	frame = make(Frame, 0, n)
	for i := 0; i < n; i++ {
		if pos >= len(p.buf) {
			return nil, 0, false, false
		}
		rel := bytes.IndexByte(p.buf[pos:], '\n')
		if rel < 0 {
			return nil, 0, false, false
		}
		lineEnd := pos + rel
		line := bytes.TrimSuffix(p.buf[pos:lineEnd], []byte{'\r'})
		if len(line) == 0 || line[0] != '$' {
			return nil, 0, false, true
		}
		blen, ok := parseInt(line[1:])
		if !ok || blen < 0 {
			return nil, 0, false, true
		}
		payloadStart := lineEnd + 1
		payloadEnd := payloadStart + blen
		if payloadEnd+2 > len(p.buf) {
			return nil, 0, false, false
		}
		if p.buf[payloadEnd] != '\r' || p.buf[payloadEnd+1] != '\n' {
			return nil, 0, false, true
		}
		val := make([]byte, blen)
		copy(val, p.buf[payloadStart:payloadEnd])
		frame = append(frame, val)
		pos = payloadEnd + 2
	}
	return frame, pos, true, false
}

func parseInt(b []byte) (int, bool) {
	if len(b) == 0 {
		return 0, false
	}
	neg := false
	i := 0
	if b[0] == '-' {
		neg = true
		i = 1
	}
	if i == len(b) {
		return 0, false
	}
	n := 0
	for ; i < len(b); i++ {
		c := b[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n, true
}
