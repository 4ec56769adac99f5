package master

import (
	"encoding/binary"
	"sync"
)

// fakeConn is a scripted transport.Conn. reply, when set, is called for
// every sent request and its chunks are delivered in order.
type fakeConn struct {
	mu      sync.Mutex
	sent    [][]byte
	sendErr error
	reply   func(req []byte) [][]byte

	rx        chan []byte
	err       error
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{rx: make(chan []byte, 64)}
}

func (f *fakeConn) Send(p []byte) error {
	f.mu.Lock()
	f.sent = append(f.sent, append([]byte(nil), p...))
	err := f.sendErr
	reply := f.reply
	f.mu.Unlock()

	if err != nil {
		return err
	}
	if reply != nil {
		for _, chunk := range reply(p) {
			f.rx <- chunk
		}
	}
	return nil
}

func (f *fakeConn) Receive() <-chan []byte { return f.rx }

func (f *fakeConn) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakeConn) Close() error {
	f.hangup(nil)
	return nil
}

// hangup ends the receive side as if the peer went away.
func (f *fakeConn) hangup(err error) {
	f.closeOnce.Do(func() {
		f.mu.Lock()
		f.err = err
		f.mu.Unlock()
		close(f.rx)
	})
}

func (f *fakeConn) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeConn) lastSent() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sent) == 0 {
		return nil
	}
	return f.sent[len(f.sent)-1]
}

// ---- response builders ----

func tidOf(req []byte) uint16 { return binary.BigEndian.Uint16(req[0:2]) }

func readReply(tid uint16, unitID uint8, fc byte, values ...uint16) []byte {
	buf := make([]byte, 9+2*len(values))
	binary.BigEndian.PutUint16(buf[0:2], tid)
	binary.BigEndian.PutUint16(buf[4:6], uint16(3+2*len(values)))
	buf[6] = unitID
	buf[7] = fc
	buf[8] = byte(2 * len(values))
	for i, v := range values {
		binary.BigEndian.PutUint16(buf[9+2*i:], v)
	}
	return buf
}

func writeReply(tid uint16, unitID uint8, addr, qty uint16) []byte {
	buf := make([]byte, 12)
	binary.BigEndian.PutUint16(buf[0:2], tid)
	binary.BigEndian.PutUint16(buf[4:6], 6)
	buf[6] = unitID
	buf[7] = 0x10
	binary.BigEndian.PutUint16(buf[8:10], addr)
	binary.BigEndian.PutUint16(buf[10:12], qty)
	return buf
}

func exceptionReply(tid uint16, unitID uint8, fc, code byte) []byte {
	buf := make([]byte, 9)
	binary.BigEndian.PutUint16(buf[0:2], tid)
	binary.BigEndian.PutUint16(buf[4:6], 3)
	buf[6] = unitID
	buf[7] = fc | 0x80
	buf[8] = code
	return buf
}
