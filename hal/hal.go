package hal

import "errors"

// Logger writes newline-delimited log lines.
type Logger interface {
	WriteLineString(s string)
	WriteLineBytes(b []byte)
}

// LED is a minimal output pin abstraction.
type LED interface {
	High()
	Low()
}

var ErrNotImplemented = errors.New("not implemented")

// Serial is a byte-oriented UART.
type Serial interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
}

// HAL provides the only contact point between applications and the outside world.
type HAL interface {
	Logger() Logger
	LED() LED
	GPIO() GPIO
	Serial() Serial
	// Close frees the kernel objects backing the devices.
	Close() error
}
