package protocol

import (
	"encoding/binary"
	"fmt"
	"math"
)

const fixedHeaderBytes = 3

// Marshal encodes f into its wire form.
//
// Field order: header, padding, [event, session id], [sequence | error code],
// payload. The session id is omitted for connection lifecycle events.
func Marshal(f Frame) ([]byte, error) {
	if err := checkNibbles(f); err != nil {
		return nil, err
	}
	if f.HeaderSize == 0 {
		return nil, ErrInvalidHeaderSize
	}
	if uint64(len(f.Payload)) > math.MaxUint32 || uint64(len(f.SessionID)) > math.MaxUint32 {
		return nil, ErrPayloadTooLarge
	}

	headerLen := f.HeaderSize.Bytes()
	buf := make([]byte, headerLen, headerLen+16+len(f.SessionID)+len(f.Payload))
	buf[0] = byte(f.Version)<<4 | byte(f.HeaderSize)
	buf[1] = byte(f.Type)<<4 | byte(f.Flag)
	buf[2] = byte(f.Serialization)<<4 | byte(f.Compression)

	if f.Flag.HasEvent() {
		buf = binary.BigEndian.AppendUint32(buf, uint32(f.Event))
		if !omitsSessionOnEncode(f.Event) {
			buf = appendString(buf, f.SessionID)
		}
	}

	switch {
	case f.Type.framed():
		if f.Flag.sequenced() {
			buf = binary.BigEndian.AppendUint32(buf, uint32(f.Sequence))
		}
	case f.Type == MsgTypeError:
		buf = binary.BigEndian.AppendUint32(buf, f.ErrorCode)
	}

	buf = binary.BigEndian.AppendUint32(buf, uint32(len(f.Payload)))
	buf = append(buf, f.Payload...)
	return buf, nil
}

// Unmarshal decodes one complete frame from data.
//
// Field order differs from Marshal: [sequence | error code] is read before
// [event, session id, connect id]. Only message types a client receives
// (plus the client kinds, for symmetry in tests) are accepted.
func Unmarshal(data []byte) (Frame, error) {
	if len(data) < fixedHeaderBytes+1 {
		return Frame{}, ErrShortFrame
	}
	f := Frame{
		Version:       Version(data[0] >> 4),
		HeaderSize:    HeaderSize(data[0] & 0x0f),
		Type:          MsgType(data[1] >> 4),
		Flag:          MsgTypeFlag(data[1] & 0x0f),
		Serialization: Serialization(data[2] >> 4),
		Compression:   Compression(data[2] & 0x0f),
	}
	if f.HeaderSize == 0 {
		return Frame{}, ErrInvalidHeaderSize
	}
	if f.HeaderSize.Bytes() > len(data) {
		return Frame{}, ErrTruncated
	}

	r := &reader{buf: data, off: f.HeaderSize.Bytes()}

	switch {
	case f.Type.framed():
		if f.Flag.sequenced() {
			seq, err := r.uint32()
			if err != nil {
				return Frame{}, err
			}
			f.Sequence = int32(seq)
		}
	case f.Type == MsgTypeError:
		code, err := r.uint32()
		if err != nil {
			return Frame{}, err
		}
		f.ErrorCode = code
	default:
		return Frame{}, fmt.Errorf("%w: %s", ErrUnsupportedMsgType, f.Type)
	}

	if f.Flag.HasEvent() {
		event, err := r.uint32()
		if err != nil {
			return Frame{}, err
		}
		f.Event = EventType(int32(event))
		if !omitsSessionOnDecode(f.Event) {
			sid, err := r.prefixed()
			if err != nil {
				return Frame{}, err
			}
			f.SessionID = string(sid)
		}
		if carriesConnectID(f.Event) {
			cid, err := r.prefixed()
			if err != nil {
				return Frame{}, err
			}
			f.ConnectID = string(cid)
		}
	}

	payload, err := r.prefixed()
	if err != nil {
		return Frame{}, err
	}
	f.Payload = make([]byte, len(payload))
	copy(f.Payload, payload)

	if rest := len(data) - r.off; rest > 0 {
		return Frame{}, fmt.Errorf("%w: %d bytes remaining", ErrTrailingData, rest)
	}
	return f, nil
}

func checkNibbles(f Frame) error {
	for _, v := range []uint8{
		uint8(f.Version), uint8(f.HeaderSize), uint8(f.Type),
		uint8(f.Flag), uint8(f.Serialization), uint8(f.Compression),
	} {
		if v > 0x0f {
			return fmt.Errorf("%w: header field %d does not fit in 4 bits", ErrFormat, v)
		}
	}
	return nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(s)))
	return append(buf, s...)
}

type reader struct {
	buf []byte
	off int
}

func (r *reader) next(n int) ([]byte, error) {
	if n < 0 || n > len(r.buf)-r.off {
		return nil, ErrTruncated
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) prefixed() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	if uint64(n) > uint64(len(r.buf)-r.off) {
		return nil, ErrTruncated
	}
	return r.next(int(n))
}
