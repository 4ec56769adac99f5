package mbap

import "encoding/binary"

// MBAP:
//
//	TID(2) PID(2=0) LEN(2) UID(1)
//
// LEN counts every byte after itself: UID + FC + data.
const (
	HeaderSize = 7

	// ProtocolID is the only protocol identifier Modbus defines.
	ProtocolID uint16 = 0x0000

	// lengthPrefix is the number of bytes up to and including LEN.
	lengthPrefix = 6

	// MaxFrameSize is the largest ADU a conforming device may send.
	MaxFrameSize = 260
)

// Header is a decoded MBAP header.
type Header struct {
	TransactionID uint16
	ProtocolID    uint16
	Length        uint16
	UnitID        uint8
}

// ParseHeader decodes the MBAP header at the start of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, malformed("header needs %d bytes, have %d", HeaderSize, len(buf))
	}
	return Header{
		TransactionID: binary.BigEndian.Uint16(buf[0:2]),
		ProtocolID:    binary.BigEndian.Uint16(buf[2:4]),
		Length:        binary.BigEndian.Uint16(buf[4:6]),
		UnitID:        buf[6],
	}, nil
}

// FrameLength reports the total size of the frame starting at buf, as
// declared by its length field. ok is false until the length field has
// been received.
func FrameLength(buf []byte) (n int, ok bool) {
	if len(buf) < lengthPrefix {
		return 0, false
	}
	return lengthPrefix + int(binary.BigEndian.Uint16(buf[4:6])), true
}

// Verify checks that h answers a request sent with tid to unitID.
func (h Header) Verify(tid uint16, unitID uint8) error {
	if h.TransactionID != tid {
		return mismatch("transaction id got=%d want=%d", h.TransactionID, tid)
	}
	if h.ProtocolID != ProtocolID {
		return mismatch("protocol id got=%d want=%d", h.ProtocolID, ProtocolID)
	}
	if h.UnitID != unitID {
		return mismatch("unit id got=%d want=%d", h.UnitID, unitID)
	}
	return nil
}
