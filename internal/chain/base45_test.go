package chain

import (
	"bytes"
	"testing"
)

func TestBase45Vectors(t *testing.T) {
	tests := []struct {
		plain   string
		encoded string
	}{
		{"AB", "BB8"},
		{"Hello!!", "%69 VD92EX0"},
		{"base-45", "UJCLQE7W581"},
		{"ietf!", "QED8WEX0"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.encoded, func(t *testing.T) {
			if got := Base45Encode([]byte(tt.plain)); got != tt.encoded {
				t.Errorf("Base45Encode(%q) = %q, want %q", tt.plain, got, tt.encoded)
			}
			got, err := Base45Decode(tt.encoded)
			if err != nil {
				t.Fatalf("could not decode %q: %v", tt.encoded, err)
			}
			if !bytes.Equal(got, []byte(tt.plain)) {
				t.Errorf("Base45Decode(%q) = %q, want %q", tt.encoded, got, tt.plain)
			}
		})
	}
}

func TestBase45DecodeRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"dangling character", "BB8B"},
		{"lowercase", "bb8"},
		{"outside alphabet", "BB#"},
		{"triplet overflow", "GGW"},
		{"pair overflow", "::"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Base45Decode(tt.input)
			if !HasCode(err, ErrCodeStructuralDecode) {
				t.Errorf("expected structural decode error, got %v", err)
			}
		})
	}
}

func TestFaultyBase45CodecLeavesAlphabet(t *testing.T) {
	text := FaultyBase45Codec{}.Encode([]byte("Hello!!"))
	if _, err := (Base45Codec{}).Decode(text); err == nil {
		t.Errorf("expected decode of %q to fail", text)
	}
}
