package chain

import (
	"fmt"
	"strings"

	"github.com/dasio/base45"
)

// Base45Encode encodes data as RFC 9285 Base45
func Base45Encode(data []byte) string {
	return base45.EncodeToString(data)
}

// Base45Decode decodes RFC 9285 Base45 text
func Base45Decode(text string) ([]byte, error) {
	if len(text)%3 == 1 {
		return nil, NewStructuralDecodeError(fmt.Sprintf("invalid base45 length %d", len(text)))
	}

	out, err := base45.DecodeString(text)
	if err != nil {
		return nil, WrapStructuralDecodeError(err, "invalid base45 text")
	}

	// triplets above 0xffff and pairs above 0xff do not survive a round trip
	if Base45Encode(out) != text {
		return nil, NewStructuralDecodeError("base45 value out of range")
	}
	return out, nil
}

// Base45Codec is the production text codec
type Base45Codec struct{}

func (Base45Codec) Encode(data []byte) string { return Base45Encode(data) }

func (Base45Codec) Decode(text string) ([]byte, error) { return Base45Decode(text) }

// FaultyBase45Codec emits lower case text, which is outside the Base45 alphabet
type FaultyBase45Codec struct {
	Base45Codec
}

func (FaultyBase45Codec) Encode(data []byte) string { return strings.ToLower(Base45Encode(data)) }
