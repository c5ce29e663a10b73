package chain

import (
	"bytes"
	"errors"
	"testing"
)

func TestZlibCompressorRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("health certificate "), 50)

	compressed, err := ZlibCompressor{}.Compress(data)
	if err != nil {
		t.Fatalf("could not compress: %v", err)
	}
	if !HasZlibHeader(compressed) {
		t.Fatalf("compressed output has no zlib header: %x", compressed[:2])
	}
	if len(compressed) >= len(data) {
		t.Errorf("compressed size %d not smaller than input %d", len(compressed), len(data))
	}

	got, err := ZlibCompressor{}.Decompress(compressed)
	if err != nil {
		t.Fatalf("could not decompress: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("round trip changed the data")
	}
}

func TestZlibCompressorDecompress(t *testing.T) {
	valid, err := ZlibCompressor{}.Compress([]byte("payload"))
	if err != nil {
		t.Fatalf("could not compress: %v", err)
	}
	faulty, err := FaultyCompressor{}.Compress([]byte("payload"))
	if err != nil {
		t.Fatalf("could not compress: %v", err)
	}

	tests := []struct {
		name             string
		input            []byte
		wantUncompressed bool
		wantStructural   bool
	}{
		{"valid stream", valid, false, false},
		{"no zlib header", []byte{0xd2, 0x84, 0x43}, true, false},
		{"empty input", nil, true, false},
		{"corrupted trailer", faulty, false, true},
		{"truncated stream", valid[:len(valid)/2], false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ZlibCompressor{}.Decompress(tt.input)
			if got := errors.Is(err, ErrUncompressed); got != tt.wantUncompressed {
				t.Errorf("errors.Is(err, ErrUncompressed) = %v, want %v (err: %v)", got, tt.wantUncompressed, err)
			}
			if got := HasCode(err, ErrCodeStructuralDecode); got != tt.wantStructural {
				t.Errorf("structural decode error = %v, want %v (err: %v)", got, tt.wantStructural, err)
			}
		})
	}
}

func TestZlibCompressorEnforcesSizeLimit(t *testing.T) {
	original := MaxDecompressedSize
	MaxDecompressedSize = 16
	defer func() { MaxDecompressedSize = original }()

	compressed, err := ZlibCompressor{}.Compress(bytes.Repeat([]byte{'a'}, 64))
	if err != nil {
		t.Fatalf("could not compress: %v", err)
	}
	if _, err := (ZlibCompressor{}).Decompress(compressed); !HasCode(err, ErrCodeStructuralDecode) {
		t.Errorf("expected structural decode error, got %v", err)
	}
}

func TestHasZlibHeader(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  bool
	}{
		{"best compression", []byte{0x78, 0xda}, true},
		{"default compression", []byte{0x78, 0x9c}, true},
		{"bad check bits", []byte{0x78, 0x00}, false},
		{"not deflate", []byte{0x79, 0xda}, false},
		{"cbor tag 18", []byte{0xd2, 0x84}, false},
		{"too short", []byte{0x78}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HasZlibHeader(tt.input); got != tt.want {
				t.Errorf("HasZlibHeader(%x) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
