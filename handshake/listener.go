package handshake

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/achilleasa/mirage/log"
	"golang.org/x/sys/unix"
)

var logger = log.New("handshake")

// Size of the device token that precedes the transferred handle.
const tokenSize = 8

// Handle is the resource handed over by the producer.
type Handle struct {
	File  *os.File
	Token uint64
}

// A Binder consumes the received handle, typically by starting an agent
// wired to the window registry.
type Binder interface {
	Bind(ctx context.Context, h Handle) error
}

// BinderFunc adapts a function to the Binder interface.
type BinderFunc func(ctx context.Context, h Handle) error

func (f BinderFunc) Bind(ctx context.Context, h Handle) error {
	return f(ctx, h)
}

// Listener accepts a single producer on an abstract unix socket.
type Listener struct {
	name   string
	binder Binder
	ln     *net.UnixListener

	closeOnce sync.Once
	refused   atomic.Int32
}

// Listen creates the abstract socket @name with a backlog of one.
func Listen(name string, binder Binder) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSocket, err)
	}

	if err = unix.Bind(fd, &unix.SockaddrUnix{Name: "@" + name}); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: @%s: %v", ErrBind, name, err)
	}
	if err = unix.Listen(fd, 1); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %v", ErrListen, err)
	}

	f := os.NewFile(uintptr(fd), "@"+name)
	ln, err := net.FileListener(f)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListen, err)
	}

	logger.Noticef("listening on @%s", name)
	return &Listener{
		name:   name,
		binder: binder,
		ln:     ln.(*net.UnixListener),
	}, nil
}

// Name returns the abstract socket name without the leading @.
func (l *Listener) Name() string {
	return l.name
}

// Refused returns the number of additional clients that were turned away.
func (l *Listener) Refused() int {
	return int(l.refused.Load())
}

// Close the listening socket. Safe to call multiple times.
func (l *Listener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		err = l.ln.Close()
	})
	return err
}

// Serve accepts one producer, receives its handle and passes it to the
// binder. Additional clients are accepted and closed right away until ctx
// is done. Serve does not retry; any failure is logged and returned.
func (l *Listener) Serve(ctx context.Context) error {
	defer l.Close()
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()

	conn, err := l.ln.AcceptUnix()
	if err != nil {
		if ctx.Err() != nil {
			return ErrClosed
		}
		logger.Errorf("accept failed: %v", err)
		return fmt.Errorf("%w: %v", ErrAccept, err)
	}

	// A client that connects but never sends must not hold up shutdown.
	stopConn := context.AfterFunc(ctx, func() { conn.Close() })
	h, err := receiveHandle(conn)
	stopConn()
	conn.Close()
	if err != nil {
		if ctx.Err() != nil {
			return ErrClosed
		}
		logger.Errorf("handshake failed: %v", err)
		l.drain()
		return err
	}
	logger.Noticef("received handle (fd %d, token %#016x)", h.File.Fd(), h.Token)

	if err = l.binder.Bind(ctx, h); err != nil {
		logger.Errorf("could not bind handle: %v", err)
		l.drain()
		return err
	}

	l.refuse()
	return nil
}

// Refuse clients already queued in the backlog without waiting for new
// ones. Called before the listener is closed after a failed handshake.
func (l *Listener) drain() {
	if err := l.ln.SetDeadline(time.Now()); err != nil {
		return
	}
	for {
		conn, err := l.ln.AcceptUnix()
		if err != nil {
			return
		}
		l.refused.Add(1)
		logger.Warning("refusing queued connection; handshake aborted")
		conn.Close()
	}
}

// Accept and immediately close clients until the listener is closed.
func (l *Listener) refuse() {
	for {
		conn, err := l.ln.AcceptUnix()
		if err != nil {
			return
		}
		l.refused.Add(1)
		logger.Warning("refusing additional connection; a producer is already bound")
		conn.Close()
	}
}

func receiveHandle(conn *net.UnixConn) (Handle, error) {
	buf := make([]byte, tokenSize)
	oob := make([]byte, unix.CmsgSpace(4*2))

	n, oobn, flags, _, err := conn.ReadMsgUnix(buf, oob)
	if err != nil {
		return Handle{}, fmt.Errorf("%w: %v", ErrReceive, err)
	}

	var fds []int
	if oobn > 0 {
		msgs, err := unix.ParseSocketControlMessage(oob[:oobn])
		if err != nil {
			return Handle{}, fmt.Errorf("%w: %v", ErrReceive, err)
		}
		for i := range msgs {
			rights, err := unix.ParseUnixRights(&msgs[i])
			if err == nil {
				fds = append(fds, rights...)
			}
		}
	}

	switch {
	case flags&unix.MSG_CTRUNC != 0:
		err = ErrControlTruncated
	case n != tokenSize:
		err = fmt.Errorf("%w: got %d bytes", ErrShortToken, n)
	case len(fds) != 1:
		err = fmt.Errorf("%w: got %d", ErrNoHandle, len(fds))
	}
	if err != nil {
		for _, fd := range fds {
			unix.Close(fd)
		}
		return Handle{}, err
	}

	// Non-blocking descriptors are registered with the runtime poller so
	// that closing the file interrupts a pending read.
	_ = unix.SetNonblock(fds[0], true)
	return Handle{
		File:  os.NewFile(uintptr(fds[0]), "producer"),
		Token: binary.NativeEndian.Uint64(buf),
	}, nil
}

// Send connects to the abstract socket @name and transfers f along with
// the token. It is the producer side of the handshake.
func Send(name string, f *os.File, token uint64) error {
	conn, err := net.DialUnix("unix", nil, &net.UnixAddr{Name: "@" + name, Net: "unix"})
	if err != nil {
		return err
	}
	defer conn.Close()

	buf := make([]byte, tokenSize)
	binary.NativeEndian.PutUint64(buf, token)

	n, oobn, err := conn.WriteMsgUnix(buf, unix.UnixRights(int(f.Fd())), nil)
	if err != nil {
		return err
	}
	if n != tokenSize || oobn == 0 {
		return errors.New("handshake: short write")
	}
	return nil
}
