package chain

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
)

// MaxDecompressedSize bounds the inflated size of a token payload
var MaxDecompressedSize int64 = 1024 * 1024 // 1MB

// HasZlibHeader reports whether data starts with a valid RFC 1950 header using deflate
func HasZlibHeader(data []byte) bool {
	if len(data) < 2 {
		return false
	}
	cmf, flg := data[0], data[1]
	if cmf&0x0f != 8 || cmf>>4 > 7 {
		return false
	}
	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// ZlibCompressor is the production compressor
type ZlibCompressor struct{}

func (ZlibCompressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return nil, WrapEncodeError(err, "failed to create zlib writer")
	}
	if _, err := w.Write(data); err != nil {
		return nil, WrapEncodeError(err, "failed to compress")
	}
	if err := w.Close(); err != nil {
		return nil, WrapEncodeError(err, "failed to compress")
	}
	return buf.Bytes(), nil
}

func (ZlibCompressor) Decompress(data []byte) ([]byte, error) {
	if !HasZlibHeader(data) {
		return nil, ErrUncompressed
	}

	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, WrapStructuralDecodeError(err, "invalid zlib stream")
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, MaxDecompressedSize+1))
	if err != nil {
		return nil, WrapStructuralDecodeError(err, "failed to inflate")
	}
	if int64(len(out)) > MaxDecompressedSize {
		return nil, NewStructuralDecodeError(fmt.Sprintf("inflated payload exceeds %d bytes", MaxDecompressedSize))
	}
	return out, nil
}

// NoopCompressor passes data through unchanged in both directions
type NoopCompressor struct{}

func (NoopCompressor) Compress(data []byte) ([]byte, error) { return bytes.Clone(data), nil }

func (NoopCompressor) Decompress(data []byte) ([]byte, error) { return bytes.Clone(data), nil }

// FaultyCompressor emits a zlib stream with a corrupted Adler-32 trailer
type FaultyCompressor struct {
	ZlibCompressor
}

func (c FaultyCompressor) Compress(data []byte) ([]byte, error) {
	out, err := c.ZlibCompressor.Compress(data)
	if err != nil {
		return nil, err
	}
	out[len(out)-1] ^= 0xff
	return out, nil
}
