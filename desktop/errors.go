package desktop

import "errors"

var (
	ErrUnknownWindow   = errors.New("desktop: unknown window")
	ErrEmptyGrid       = errors.New("desktop: tile grid must be at least 1x1")
	ErrGridTooFine     = errors.New("desktop: tile grid is finer than the window resolution")
	ErrBitmapTooShort  = errors.New("desktop: dirty bitmap does not cover the tile grid")
	ErrTileOutOfRange  = errors.New("desktop: dirty bitmap references a tile outside the grid")
	ErrPayloadSize     = errors.New("desktop: pixel payload size does not match dirty tiles")
	ErrWindowTooLarge  = errors.New("desktop: window resolution exceeds limit")
	ErrZeroSizedWindow = errors.New("desktop: window resolution must be non-zero")
)
