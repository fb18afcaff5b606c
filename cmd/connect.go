package cmd

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"os"
	"os/signal"
	"time"

	"github.com/achilleasa/mirage/agent"
	"github.com/achilleasa/mirage/asset/texture"
	"github.com/achilleasa/mirage/desktop"
	"github.com/achilleasa/mirage/handshake"
	"github.com/google/uuid"
	"github.com/urfave/cli"
	"golang.org/x/sys/unix"
)

// Connect acts as a test producer. It hands one end of a socket pair to a
// running compositor, pushes the image given as argument as a window and
// refreshes it tile by tile until interrupted or --hold expires.
func Connect(ctx *cli.Context) error {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if ctx.NArg() != 1 {
		return errors.New("missing image file argument")
	}
	tilesX, tilesY := uint32(ctx.Int("tiles-x")), uint32(ctx.Int("tiles-y"))
	if tilesX == 0 || tilesY == 0 {
		return errors.New("tile counts must be positive")
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, unix.SIGTERM)
	defer stop()

	tex, err := texture.Load(sigCtx, ctx.Args().First(), "", texture.Options{MaxWidth: ctx.Int("max-width")})
	if err != nil {
		return err
	}
	fb := framebufferFromImage(tex.Image())

	local, remote, err := socketPair()
	if err != nil {
		return err
	}
	defer local.Close()

	token := ctx.Uint64("token")
	if token == 0 {
		id := uuid.New()
		token = binary.BigEndian.Uint64(id[:8])
	}
	err = handshake.Send(cfg.Handshake.Socket, remote, token)
	remote.Close()
	if err != nil {
		return fmt.Errorf("could not hand over connection to @%s: %w", cfg.Handshake.Socket, err)
	}
	logger.Noticef("connected to @%s with token %#016x", cfg.Handshake.Socket, token)

	var (
		id  = uint32(ctx.Int("id"))
		enc = agent.NewEncoder(local)
	)
	if err = enc.Push(fb.Extract(id, tilesX, tilesY)); err != nil {
		return err
	}
	logger.Noticef("pushed %dx%d window %d", fb.Width, fb.Height, id)

	holdCtx := sigCtx
	if hold := ctx.Duration("hold"); hold > 0 {
		var cancel context.CancelFunc
		holdCtx, cancel = context.WithTimeout(sigCtx, hold)
		defer cancel()
	}

	ticker := time.NewTicker(ctx.Duration("interval"))
	defer ticker.Stop()
	for tile := uint32(0); ; tile = (tile + 1) % (tilesX * tilesY) {
		select {
		case <-holdCtx.Done():
			logger.Noticef("destroying window %d", id)
			return enc.Destroy(id)
		case <-ticker.C:
			if err = enc.Push(fb.Extract(id, tilesX, tilesY, tile)); err != nil {
				return err
			}
		}
	}
}

func socketPair() (local, remote *os.File, err error) {
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return nil, nil, fmt.Errorf("could not create socket pair: %w", err)
	}
	return os.NewFile(uintptr(fds[0]), "producer"), os.NewFile(uintptr(fds[1]), "compositor"), nil
}

// Convert img to the premultiplied BGRA layout windows are streamed in.
func framebufferFromImage(img *image.NRGBA) *desktop.Framebuffer {
	b := img.Bounds()
	fb := &desktop.Framebuffer{}
	fb.Resize(uint32(b.Dx()), uint32(b.Dy()))

	for y := 0; y < b.Dy(); y++ {
		row := fb.Pix[y*fb.Stride():]
		for x := 0; x < b.Dx(); x++ {
			c := img.NRGBAAt(b.Min.X+x, b.Min.Y+y)
			a := uint32(c.A)
			px := row[x*4 : x*4+4 : x*4+4]
			px[0] = uint8(uint32(c.B) * a / 255)
			px[1] = uint8(uint32(c.G) * a / 255)
			px[2] = uint8(uint32(c.R) * a / 255)
			px[3] = c.A
		}
	}
	return fb
}
