package log

import (
	"bytes"
	"sync"
)

// LineWriter is an io.WriteCloser that emits one log entry per line written
// to it. Partial lines are buffered until a newline arrives or the writer
// is closed.
type LineWriter struct {
	mu     sync.Mutex
	logger Logger
	level  Level
	buf    bytes.Buffer
}

// Create a line writer that logs each line at the given level.
func NewLineWriter(logger Logger, level Level) *LineWriter {
	return &LineWriter{logger: logger, level: level}
}

func (w *LineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		idx := bytes.IndexByte(w.buf.Bytes(), '\n')
		if idx < 0 {
			break
		}
		line := string(bytes.TrimRight(w.buf.Next(idx+1), "\r\n"))
		w.emit(line)
	}
	return len(p), nil
}

// Flush any buffered partial line.
func (w *LineWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.buf.Len() > 0 {
		w.emit(w.buf.String())
		w.buf.Reset()
	}
	return nil
}

func (w *LineWriter) emit(line string) {
	switch w.level {
	case Debug:
		w.logger.Debug(line)
	case Info:
		w.logger.Info(line)
	case Warning:
		w.logger.Warning(line)
	case Error:
		w.logger.Error(line)
	default:
		w.logger.Notice(line)
	}
}
