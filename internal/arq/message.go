package arq

import "fmt"

// Packet carries one application message.
type Packet struct {
	Seq     int
	Payload []byte
}

// Ack acknowledges received data. Cumulative is the highest sequence the
// receiver holds contiguously from zero (-1 when it holds none); Seq is the
// sequence whose arrival triggered the acknowledgment, which lets the
// sender retire out-of-order messages individually.
type Ack struct {
	Cumulative int
	Seq        int
}

func (a Ack) String() string {
	return fmt.Sprintf("ack(cum=%d seq=%d)", a.Cumulative, a.Seq)
}

// PayloadFunc produces the fixed-size payload for a sequence number.
type PayloadFunc func(seq, size int) []byte

// PatternPayload fills the payload with bytes derived from the sequence
// number, so a receiver can tell messages apart without extra framing.
func PatternPayload(seq, size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(seq + i)
	}
	return b
}
