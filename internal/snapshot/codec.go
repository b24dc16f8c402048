package snapshot

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"time"
)

const (
	opAux          = 0xFA
	opResizeDB     = 0xFB
	opExpireMillis = 0xFC
	opExpireSecs   = 0xFD
	opSelectDB     = 0xFE
	opEOF          = 0xFF

	valueTypeString = 0x00

	header = "REDIS0011"
)

// Entry is one string key/value pair plus its optional expiry, the only
// value type this codec implements.
type Entry struct {
	Key       []byte
	Value     []byte
	ExpireAt  time.Time
	HasExpiry bool
	Millis    bool // expiry stored as 0xFC (millis) rather than 0xFD (seconds)
}

// Options controls writer behaviour not fixed by the file format itself.
type Options struct {
	Compress bool // use the 0xC3 LZ4 string encoding for large values
}

// Write serializes entries to path in this codec's binary layout.
func Write(path string, entries []Entry, opts Options) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	if err := encode(w, entries, opts); err != nil {
		return err
	}
	return w.Flush()
}

// Serialize renders entries into the same on-disk layout Write uses,
// but in memory, used to build the bare-bulk snapshot payload a primary
// sends a freshly handshaking replica without staging a temporary file.
func Serialize(entries []Entry, opts Options) ([]byte, error) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	if err := encode(w, entries, opts); err != nil {
		return nil, err
	}
	if err := w.Flush(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func encode(w *bufio.Writer, entries []Entry, opts Options) error {
	if _, err := w.WriteString(header); err != nil {
		return err
	}

	if len(entries) > 0 {
		if err := writeBytes(w, opSelectDB, 0x00); err != nil {
			return err
		}
		expiring := 0
		for _, e := range entries {
			if e.HasExpiry {
				expiring++
			}
		}
		if err := writeBytes(w, opResizeDB); err != nil {
			return err
		}
		if err := writeSize(w, len(entries)); err != nil {
			return err
		}
		if err := writeSize(w, expiring); err != nil {
			return err
		}
		for _, e := range entries {
			if e.HasExpiry {
				if e.Millis {
					var buf [8]byte
					binary.LittleEndian.PutUint64(buf[:], uint64(e.ExpireAt.UnixMilli()))
					if err := writeBytes(w, opExpireMillis); err != nil {
						return err
					}
					if _, err := w.Write(buf[:]); err != nil {
						return err
					}
				} else {
					var buf [4]byte
					binary.LittleEndian.PutUint32(buf[:], uint32(e.ExpireAt.Unix()))
					if err := writeBytes(w, opExpireSecs); err != nil {
						return err
					}
					if _, err := w.Write(buf[:]); err != nil {
						return err
					}
				}
			}
			if err := writeBytes(w, valueTypeString); err != nil {
				return err
			}
			if err := writeString(w, e.Key, false); err != nil {
				return err
			}
			if err := writeString(w, e.Value, opts.Compress); err != nil {
				return err
			}
		}
	}

	if err := writeBytes(w, opEOF); err != nil {
		return err
	}
	var checksum [8]byte
	if _, err := w.Write(checksum[:]); err != nil {
		return err
	}
	return nil
}

// Read parses a snapshot file, returning every string entry across every
// database block (this server only ever populates database 0, but the
// reader tolerates whatever is on disk).
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

// DecodeBytes parses an in-memory snapshot payload, the replica-side
// counterpart to Serialize: used right after the handshake swallows the
// bare bulk blob.
func DecodeBytes(b []byte) ([]Entry, error) {
	return Decode(bufio.NewReader(bytes.NewReader(b)))
}

// Decode parses the header, metadata, database blocks, and EOF marker from
// r, returning every string entry encountered.
func Decode(r *bufio.Reader) ([]Entry, error) {
	hdr := make([]byte, len(header))
	if _, err := io.ReadFull(r, hdr); err != nil {
		return nil, fmt.Errorf("snapshot: reading header: %w", err)
	}
	if string(hdr[:5]) != "REDIS" {
		return nil, fmt.Errorf("snapshot: bad header %q", hdr)
	}

	var out []Entry
	for {
		op, err := r.ReadByte()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}

		switch op {
		case opAux:
			if _, err := readString(r); err != nil {
				return nil, fmt.Errorf("snapshot: aux key: %w", err)
			}
			if _, err := readString(r); err != nil {
				return nil, fmt.Errorf("snapshot: aux value: %w", err)
			}

		case opSelectDB:
			if _, err := r.ReadByte(); err != nil {
				return nil, fmt.Errorf("snapshot: db index: %w", err)
			}
			entries, err := decodeDatabase(r)
			if err != nil {
				return nil, err
			}
			out = append(out, entries...)

		case opEOF:
			var checksum [8]byte
			io.ReadFull(r, checksum[:]) // tolerate short/zero checksum
			return out, nil

		default:
			return nil, fmt.Errorf("snapshot: unexpected opcode 0x%02X", op)
		}
	}
}

func decodeDatabase(r *bufio.Reader) ([]Entry, error) {
	b, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if b == opResizeDB {
		if _, err := readSize(r); err != nil {
			return nil, fmt.Errorf("snapshot: resizedb key count: %w", err)
		}
		if _, err := readSize(r); err != nil {
			return nil, fmt.Errorf("snapshot: resizedb expiry count: %w", err)
		}
		b, err = r.ReadByte()
		if err != nil {
			return nil, err
		}
	}

	var entries []Entry
	for {
		if b == opSelectDB || b == opEOF {
			if err := r.UnreadByte(); err != nil {
				return nil, err
			}
			return entries, nil
		}

		e := Entry{}
		switch b {
		case opExpireSecs:
			var buf [4]byte
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, err
			}
			e.HasExpiry = true
			e.ExpireAt = time.Unix(int64(binary.LittleEndian.Uint32(buf[:])), 0)
			if b, err = r.ReadByte(); err != nil {
				return nil, err
			}
		case opExpireMillis:
			var buf [8]byte
			if _, err := io.ReadFull(r, buf[:]); err != nil {
				return nil, err
			}
			e.HasExpiry = true
			e.Millis = true
			e.ExpireAt = time.UnixMilli(int64(binary.LittleEndian.Uint64(buf[:])))
			if b, err = r.ReadByte(); err != nil {
				return nil, err
			}
		}

		if b != valueTypeString {
			return nil, fmt.Errorf("snapshot: unsupported value type 0x%02X", b)
		}

		key, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("snapshot: key: %w", err)
		}
		val, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("snapshot: value: %w", err)
		}
		e.Key, e.Value = key, val
		entries = append(entries, e)

		b, err = r.ReadByte()
		if err != nil {
			if err == io.EOF {
				return entries, nil
			}
			return nil, err
		}
	}
}
