// Package mbap encodes Modbus TCP requests and validates responses
// against the request that produced them. It holds no state.
package mbap

import (
	"encoding/binary"

	"github.com/goburrow/modbus"
)

const (
	// MaxReadQuantity is the register limit of FC 3/4: the response byte
	// count is one octet.
	MaxReadQuantity = 125

	// MaxWriteQuantity is the register limit of FC 16.
	MaxWriteQuantity = 123

	exceptionFlag byte = 0x80

	// MBAP(7) + FC(1) + byte count(1)
	readResponseOverhead = HeaderSize + 2

	// MBAP(7) + FC(1) + address(2) + quantity(2)
	writeResponseSize = HeaderSize + 5
)

// EncodeReadRequest builds a Read Holding Registers (FC 3) ADU.
func EncodeReadRequest(tid uint16, unitID uint8, addr, qty uint16) ([]byte, error) {
	return encodeRead(modbus.FuncCodeReadHoldingRegisters, tid, unitID, addr, qty)
}

// EncodeReadInputRequest builds a Read Input Registers (FC 4) ADU.
func EncodeReadInputRequest(tid uint16, unitID uint8, addr, qty uint16) ([]byte, error) {
	return encodeRead(modbus.FuncCodeReadInputRegisters, tid, unitID, addr, qty)
}

func encodeRead(fc byte, tid uint16, unitID uint8, addr, qty uint16) ([]byte, error) {
	if qty == 0 || qty > MaxReadQuantity {
		return nil, invalid("read quantity %d not in 1..%d", qty, MaxReadQuantity)
	}
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], qty)

	return encode(tid, unitID, fc, data), nil
}

// EncodeWriteRequest builds a Write Multiple Registers (FC 16) ADU.
//
// PDU:
//
//	FC(1) Address(2) Quantity(2) ByteCount(1) Values(2n)
func EncodeWriteRequest(tid uint16, unitID uint8, addr uint16, values []uint16) ([]byte, error) {
	n := len(values)
	if n == 0 || n > MaxWriteQuantity {
		return nil, invalid("write quantity %d not in 1..%d", n, MaxWriteQuantity)
	}
	data := make([]byte, 5+2*n)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], uint16(n))
	data[4] = byte(2 * n)
	for i, v := range values {
		binary.BigEndian.PutUint16(data[5+2*i:], v)
	}

	return encode(tid, unitID, modbus.FuncCodeWriteMultipleRegisters, data), nil
}

// encode prefixes the PDU (fc + data) with an MBAP header.
func encode(tid uint16, unitID uint8, fc byte, data []byte) []byte {
	adu := make([]byte, HeaderSize+1+len(data))
	binary.BigEndian.PutUint16(adu[0:2], tid)
	binary.BigEndian.PutUint16(adu[2:4], ProtocolID)
	adu[6] = unitID
	adu[7] = fc
	copy(adu[HeaderSize+1:], data)

	// Length = UnitID(1) + FC(1) + data, known only once the PDU is built.
	binary.BigEndian.PutUint16(adu[4:6], uint16(2+len(data)))
	return adu
}

// DecodeReadResponse validates a FC 3 response for qty registers and
// returns the register values.
func DecodeReadResponse(buf []byte, qty uint16) ([]uint16, error) {
	return decodeRegisters(buf, modbus.FuncCodeReadHoldingRegisters, qty)
}

// DecodeReadInputResponse is DecodeReadResponse for FC 4.
func DecodeReadInputResponse(buf []byte, qty uint16) ([]uint16, error) {
	return decodeRegisters(buf, modbus.FuncCodeReadInputRegisters, qty)
}

func decodeRegisters(buf []byte, fc byte, qty uint16) ([]uint16, error) {
	if err := exception(buf); err != nil {
		return nil, err
	}

	need := readResponseOverhead + 2*int(qty)
	if len(buf) < need {
		return nil, malformed("read response needs %d bytes, have %d", need, len(buf))
	}
	if buf[7] != fc {
		return nil, mismatch("function code got=0x%02x want=0x%02x", buf[7], fc)
	}
	if int(buf[8]) != 2*int(qty) {
		return nil, mismatch("byte count got=%d want=%d", buf[8], 2*int(qty))
	}

	out := make([]uint16, qty)
	for i := range out {
		off := readResponseOverhead + 2*i
		out[i] = binary.BigEndian.Uint16(buf[off : off+2])
	}
	return out, nil
}

// DecodeWriteResponse validates a FC 16 response. A nil error means the
// device echoed addr and qty; anything else leaves the write unconfirmed.
func DecodeWriteResponse(buf []byte, addr, qty uint16) error {
	if err := exception(buf); err != nil {
		return err
	}

	if len(buf) < writeResponseSize {
		return malformed("write response needs %d bytes, have %d", writeResponseSize, len(buf))
	}
	if buf[7] != modbus.FuncCodeWriteMultipleRegisters {
		return mismatch("function code got=0x%02x want=0x%02x", buf[7], modbus.FuncCodeWriteMultipleRegisters)
	}
	if got := binary.BigEndian.Uint16(buf[8:10]); got != addr {
		return mismatch("echoed address got=%d want=%d", got, addr)
	}
	if got := binary.BigEndian.Uint16(buf[10:12]); got != qty {
		return mismatch("echoed quantity got=%d want=%d", got, qty)
	}
	return nil
}

// exception reports an exception response. Any function code with the
// high bit set is an exception, whatever function it names.
func exception(buf []byte) error {
	if len(buf) <= HeaderSize || buf[HeaderSize]&exceptionFlag == 0 {
		return nil
	}
	if len(buf) < HeaderSize+2 {
		return malformed("exception response without exception code")
	}
	return newDeviceException(buf[HeaderSize], buf[HeaderSize+1])
}
