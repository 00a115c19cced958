package recdb

import "encoding/binary"

func ensureCapacity(buf []byte, minCap int) []byte {
	c := cap(buf)
	if minCap > c {
		if c < 16 {
			c = 16
		}
		for minCap > c {
			c <<= 1
		}
		old := buf
		buf = make([]byte, len(old), c)
		copy(buf, old)
	}
	return buf
}

func grow(buf []byte, n int) (int, []byte) {
	off := len(buf)
	newLen := off + n
	buf = ensureCapacity(buf, newLen)
	return off, buf[:newLen]
}

func appendRaw(buf []byte, chunk []byte) []byte {
	n := len(chunk)
	off, buf := grow(buf, n)
	copy(buf[off:], chunk)
	return buf
}

func appendByte(buf []byte, v byte) []byte {
	off, buf := grow(buf, 1)
	buf[off] = v
	return buf
}

func appendFixedUint64(buf []byte, v uint64) []byte {
	off, buf := grow(buf, 8)
	binary.BigEndian.PutUint64(buf[off:], v)
	return buf
}

func appendUvarint(buf []byte, v uint64) []byte {
	off, buf := grow(buf, binary.MaxVarintLen64)
	off += binary.PutUvarint(buf[off:], v)
	return buf[:off]
}

func appendVarbytes(buf []byte, v []byte) []byte {
	n := len(v)
	off, buf := grow(buf, binary.MaxVarintLen64+n)
	off += binary.PutUvarint(buf[off:], uint64(n))
	copy(buf[off:], v)
	return buf[:off+n]
}
