package ibme

import (
	"strings"

	"github.com/Mega-Ryan/IBME/Hash"
	"github.com/Mega-Ryan/IBME/fault"
)

// Message is a fixed-width plaintext bit string.
type Message struct {
	bits hash.Bits
}

// ParseMessage reads a string of '0' and '1' into a message of the given
// width, left-padding with zeros. Longer strings are rejected.
func ParseMessage(s string, width int) (Message, error) {
	if len(s) > width {
		return Message{}, fault.Wrapf("ibme.ParseMessage", fault.Usage, hash.ErrBitWidth, "%d bits, width is %d", len(s), width)
	}
	b, err := hash.ParseBits(strings.Repeat("0", width-len(s)) + s)
	if err != nil {
		return Message{}, err
	}
	return Message{bits: b}, nil
}

// ParseMessage parses s at the scheme's message width.
func (s *Scheme) ParseMessage(str string) (Message, error) {
	return ParseMessage(str, s.params.MessageLen)
}

func (m Message) Len() int { return m.bits.Len() }

func (m Message) Bits() hash.Bits { return m.bits }

func (m Message) Equal(o Message) bool { return m.bits.Equal(o.bits) }

func (m Message) String() string { return m.bits.String() }
