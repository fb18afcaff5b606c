package handshake

import "errors"

var (
	ErrSocket           = errors.New("handshake: could not create socket")
	ErrBind             = errors.New("handshake: could not bind socket")
	ErrListen           = errors.New("handshake: could not listen on socket")
	ErrAccept           = errors.New("handshake: could not accept connection")
	ErrReceive          = errors.New("handshake: could not receive message")
	ErrShortToken       = errors.New("handshake: message does not carry an 8 byte token")
	ErrNoHandle         = errors.New("handshake: message does not carry exactly one handle")
	ErrControlTruncated = errors.New("handshake: control message truncated")
	ErrClosed           = errors.New("handshake: listener closed")
)
