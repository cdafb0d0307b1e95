// Package protocol owns the binary frame format spoken with the speech service.
//
// A frame is a 4*N byte header (version, header size, message type, flags,
// serialization, compression, zero padding) followed by optional event,
// session, connect, sequence or error-code fields and a length-prefixed
// payload. Payload bytes are never interpreted here.
package protocol
