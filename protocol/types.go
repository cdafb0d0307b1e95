package protocol

import "fmt"

// Version is the 4-bit protocol version.
type Version uint8

const (
	Version1 Version = 1
	Version2 Version = 2
	Version3 Version = 3
	Version4 Version = 4
)

// HeaderSize is the 4-bit header size code; the header is 4*code bytes long.
type HeaderSize uint8

const (
	HeaderSize4  HeaderSize = 1
	HeaderSize8  HeaderSize = 2
	HeaderSize12 HeaderSize = 3
	HeaderSize16 HeaderSize = 4
)

// Bytes returns the header length in bytes.
func (h HeaderSize) Bytes() int {
	return 4 * int(h)
}

// MsgType selects how the rest of the frame is laid out.
type MsgType uint8

const (
	MsgTypeInvalid              MsgType = 0
	MsgTypeFullClientRequest    MsgType = 0b0001
	MsgTypeAudioOnlyClient      MsgType = 0b0010
	MsgTypeFullServerResponse   MsgType = 0b1001
	MsgTypeAudioOnlyServer      MsgType = 0b1011
	MsgTypeFrontEndResultServer MsgType = 0b1100
	MsgTypeError                MsgType = 0b1111

	// MsgTypeServerACK shares its code with MsgTypeAudioOnlyServer.
	MsgTypeServerACK = MsgTypeAudioOnlyServer
)

func (t MsgType) String() string {
	switch t {
	case MsgTypeInvalid:
		return "Invalid"
	case MsgTypeFullClientRequest:
		return "FullClientRequest"
	case MsgTypeAudioOnlyClient:
		return "AudioOnlyClient"
	case MsgTypeFullServerResponse:
		return "FullServerResponse"
	case MsgTypeAudioOnlyServer:
		return "AudioOnlyServer"
	case MsgTypeFrontEndResultServer:
		return "FrontEndResultServer"
	case MsgTypeError:
		return "Error"
	default:
		return fmt.Sprintf("MsgType(%d)", uint8(t))
	}
}

// framed reports whether t carries a sequence field when sequenced.
func (t MsgType) framed() bool {
	switch t {
	case MsgTypeFullClientRequest, MsgTypeAudioOnlyClient,
		MsgTypeFullServerResponse, MsgTypeAudioOnlyServer, MsgTypeFrontEndResultServer:
		return true
	}
	return false
}

// MsgTypeFlag holds the sequencing bits and the WithEvent bit.
type MsgTypeFlag uint8

const (
	FlagNoSeq       MsgTypeFlag = 0
	FlagPositiveSeq MsgTypeFlag = 0b001
	FlagLastNoSeq   MsgTypeFlag = 0b010
	FlagNegativeSeq MsgTypeFlag = 0b011
	FlagWithEvent   MsgTypeFlag = 0b100
)

// HasEvent reports whether the WithEvent bit is set.
func (f MsgTypeFlag) HasEvent() bool {
	return f&FlagWithEvent != 0
}

// sequenced reports whether the flag is exactly PositiveSeq or NegativeSeq.
// A WithEvent bit alongside disables the sequence field.
func (f MsgTypeFlag) sequenced() bool {
	return f == FlagPositiveSeq || f == FlagNegativeSeq
}

// Serialization describes the payload encoding; opaque to the codec.
type Serialization uint8

const (
	SerializationRaw    Serialization = 0
	SerializationJSON   Serialization = 0b0001
	SerializationThrift Serialization = 0b0011
	SerializationCustom Serialization = 0b1111
)

// Compression describes the payload compression; opaque to the codec.
type Compression uint8

const (
	CompressionNone   Compression = 0
	CompressionGzip   Compression = 0b0001
	CompressionCustom Compression = 0b1111
)
