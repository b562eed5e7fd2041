// Package chunk encodes HTTP/1.1 chunked transfer-encoding frames.
package chunk

import (
	"fmt"
	"math/bits"
	"strconv"

	"github.com/yusing/chunkstream/internal/common"
)

const MaxBlockSize = common.MaxBlockSize

var crlf = []byte("\r\n")

// FrameSize returns the encoded size of a frame carrying n bytes.
func FrameSize(n int) int {
	return hexLen(n) + len(crlf) + n + len(crlf)
}

func hexLen(n int) int {
	if n == 0 {
		return 1
	}
	return (bits.Len(uint(n)) + 3) / 4
}

// AppendFrame appends "<hex len>\r\n<block>\r\n" to dst.
//
// The length is lowercase hexadecimal without leading zeros, "0" for an
// empty block. It panics if block is larger than MaxBlockSize.
func AppendFrame(dst []byte, block []byte) []byte {
	if len(block) > MaxBlockSize {
		panic(fmt.Sprintf("chunk: block of %d bytes exceeds %d", len(block), MaxBlockSize))
	}
	dst = strconv.AppendUint(dst, uint64(len(block)), 16)
	dst = append(dst, crlf...)
	dst = append(dst, block...)
	return append(dst, crlf...)
}

// Frame returns a newly allocated frame of block.
func Frame(block []byte) []byte {
	return AppendFrame(make([]byte, 0, FrameSize(len(block))), block)
}
