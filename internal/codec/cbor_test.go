package codec

import (
	"bytes"
	"encoding/hex"
	"testing"
)

func TestMarshalIsDeterministic(t *testing.T) {
	a := map[string]any{"ver": "1.2.1", "dob": "1964-08-12", "nam": map[string]string{"fn": "Musterfrau", "gn": "Gabriele"}}
	b := map[string]any{"nam": map[string]string{"gn": "Gabriele", "fn": "Musterfrau"}, "dob": "1964-08-12", "ver": "1.2.1"}

	first, err := Marshal(a)
	if err != nil {
		t.Fatalf("could not marshal: %v", err)
	}
	for range 10 {
		second, err := Marshal(b)
		if err != nil {
			t.Fatalf("could not marshal: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Fatalf("encodings differ:\n%x\n%x", first, second)
		}
	}
}

func TestUnmarshalRejectsMalformedInput(t *testing.T) {
	tests := []struct {
		name string
		hex  string
	}{
		{"duplicate map key", "a2616101616102"},
		{"trailing bytes", "0101"},
		{"truncated", "a16161"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := hex.DecodeString(tt.hex)
			if err != nil {
				t.Fatalf("could not decode hex: %v", err)
			}
			var v any
			if err := Unmarshal(data, &v); err == nil {
				t.Errorf("expected an error, got %v", v)
			}
		})
	}
}

func TestValid(t *testing.T) {
	if err := Valid([]byte{0xa0}); err != nil {
		t.Errorf("empty map should be valid: %v", err)
	}
	if err := Valid([]byte{0xa1, 0x01}); err == nil {
		t.Error("expected an error for an incomplete map")
	}
}

func TestDiagnose(t *testing.T) {
	data, err := Marshal(map[int64]any{1: "AT", 4: int64(1700000000)})
	if err != nil {
		t.Fatalf("could not marshal: %v", err)
	}

	got, err := Diagnose(data)
	if err != nil {
		t.Fatalf("could not diagnose: %v", err)
	}
	if want := `{1: "AT", 4: 1700000000}`; got != want {
		t.Errorf("got %s, want %s", got, want)
	}
}
