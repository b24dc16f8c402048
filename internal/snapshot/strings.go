package snapshot

import (
	"bufio"
	"encoding/binary"
	"io"
	"strconv"

	"github.com/pierrec/lz4/v4"
)

// compressThreshold is the minimum value length before the writer bothers
// trying LZ4 compression (the 0xC3 encoding); short strings almost
// never shrink and the size-prefix overhead isn't worth it.
const compressThreshold = 64

// writeString emits a size-encoded string. compress requests the 0xC3
// LZ4-backed encoding for values that actually shrink; it silently falls
// back to the literal encoding otherwise.
func writeString(w io.Writer, b []byte, compress bool) error {
	if compress && len(b) >= compressThreshold {
		bound := lz4.CompressBlockBound(len(b))
		dst := make([]byte, bound)
		var table [1 << 16]int
		n, err := lz4.CompressBlock(b, dst, table[:])
		if err == nil && n > 0 && n < len(b) {
			if err := writeBytes(w, 0xC0|encodeLZ4&0x3F); err != nil {
				return err
			}
			if err := writeSize(w, n); err != nil {
				return err
			}
			if err := writeSize(w, len(b)); err != nil {
				return err
			}
			_, err = w.Write(dst[:n])
			return err
		}
	}
	if err := writeSize(w, len(b)); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

// readString decodes a size-encoded string, including the special integer
// and LZ4-compressed forms a "11xxxxxx" size byte selects.
func readString(r *bufio.Reader) ([]byte, error) {
	sz, err := readSize(r)
	if err != nil {
		return nil, err
	}
	if !sz.isSpecial {
		buf := make([]byte, sz.length)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	switch sz.special {
	case encodeInt8 & 0x3F:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return []byte(strconv.FormatInt(int64(int8(b)), 10)), nil
	case encodeInt16 & 0x3F:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		v := int16(binary.LittleEndian.Uint16(buf[:]))
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case encodeInt32 & 0x3F:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, err
		}
		v := int32(binary.LittleEndian.Uint32(buf[:]))
		return []byte(strconv.FormatInt(int64(v), 10)), nil
	case encodeLZ4 & 0x3F:
		compLen, err := readSize(r)
		if err != nil {
			return nil, err
		}
		origLen, err := readSize(r)
		if err != nil {
			return nil, err
		}
		compressed := make([]byte, compLen.length)
		if _, err := io.ReadFull(r, compressed); err != nil {
			return nil, err
		}
		orig := make([]byte, origLen.length)
		n, err := lz4.UncompressBlock(compressed, orig)
		if err != nil {
			return nil, err
		}
		return orig[:n], nil
	default:
		return nil, errUnknownSpecial(sz.special)
	}
}
