package untar

import (
	"strconv"
	"strings"
)

// BlockSize is the fixed tar block size: every header occupies one block
// and payloads are padded to a block boundary.
const BlockSize = 512

// Header field offsets and lengths, per the ustar layout this app consumes.
const (
	nameOffset = 0
	nameLength = 100

	modeOffset = 100
	modeLength = 8

	sizeOffset = 124
	sizeLength = 12

	mtimeOffset = 136
	mtimeLength = 12
)

// header is one parsed entry header. Values are transient; nothing outside
// the extraction loop holds on to one.
type header struct {
	name    string
	mode    int64
	size    int64
	modTime int64
}

func parseHeader(block []byte) header {
	return header{
		name:    parseString(block, nameOffset, nameLength),
		mode:    parseOctal(block, modeOffset, modeLength),
		size:    parseOctal(block, sizeOffset, sizeLength),
		modTime: parseOctal(block, mtimeOffset, mtimeLength),
	}
}

// isDir reports whether the entry names a directory. The formats in the
// wild mark these with a trailing separator, sometimes separator+dot.
func (h header) isDir() bool {
	return strings.HasSuffix(h.name, "/") || strings.HasSuffix(h.name, "/.")
}

// parseString reads a NUL-terminated ASCII field.
func parseString(block []byte, offset, length int) string {
	end := offset
	max := min(offset+length, len(block))
	for end < max && block[end] != 0 {
		end++
	}
	return string(block[offset:end])
}

// parseOctal reads an ASCII octal field. Empty or malformed fields yield 0
// rather than an error so one corrupt header cannot abort an extraction.
func parseOctal(block []byte, offset, length int) int64 {
	s := strings.TrimSpace(parseString(block, offset, length))
	if s == "" {
		return 0
	}
	v, err := strconv.ParseInt(s, 8, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// isZeroBlock reports whether every byte of the block is zero, the
// end-of-archive marker.
func isZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}
	return true
}
