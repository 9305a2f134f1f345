//go:build !tinygo

package hal

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang/glog"

	"furi/furi"
	"furi/kernel"
)

// Config selects host device backends.
type Config struct {
	// Log receives device log lines. Nil routes them to glog.
	Log io.Writer
	// SerialRx is the receive buffer size; 0 means 256 bytes.
	SerialRx int
	// SerialTx receives transmitted bytes. Nil means stdout.
	SerialTx io.Writer
	// SerialTimeout bounds serial reads.
	SerialTimeout furi.Duration
}

type hostHAL struct {
	logger Logger
	led    *hostLED
	gpio   GPIO
	serial *StreamSerial
}

// New returns a host HAL whose devices are backed by kernel primitives.
func New(k kernel.Kernel, cfg Config) (HAL, error) {
	var logger Logger = glogLogger{}
	if cfg.Log != nil {
		logger = &hostLogger{w: cfg.Log}
	}
	if cfg.SerialRx <= 0 {
		cfg.SerialRx = 256
	}
	if cfg.SerialTx == nil {
		cfg.SerialTx = os.Stdout
	}
	if cfg.SerialTimeout == 0 {
		cfg.SerialTimeout = furi.Millis(100)
	}

	h := &hostHAL{logger: logger, led: &hostLED{logger: logger}}
	pins, err := hostPins(k, h.led)
	if err != nil {
		closePins(pins)
		return nil, err
	}
	h.gpio = newVirtualGPIO(pins)
	h.serial, err = NewStreamSerial(k, cfg.SerialRx, cfg.SerialTimeout, cfg.SerialTx)
	if err != nil {
		closePins(pins)
		return nil, err
	}
	return h, nil
}

func hostPins(k kernel.Mutexes, led LED) ([]GPIOPin, error) {
	var pins []GPIOPin
	add := func(p GPIOPin, err error) error {
		if err != nil {
			return err
		}
		pins = append(pins, p)
		return nil
	}
	if err := add(newLEDPin(k, "LED", led)); err != nil {
		return pins, err
	}
	for i := 0; i < 7; i++ {
		p, err := newVirtualPin(k, fmt.Sprintf("GPIO%d", i+1), GPIOCapInput|GPIOCapOutput|GPIOCapPullUp|GPIOCapPullDown)
		if err != nil {
			return pins, err
		}
		pins = append(pins, p)
	}
	// Dummy signal sources for scope-style consumers.
	signals := []struct {
		name         string
		period, high time.Duration
	}{
		{"SIG1HZ", 1 * time.Second, 500 * time.Millisecond},
		{"SIG5HZ", 200 * time.Millisecond, 100 * time.Millisecond},
		{"SIGPULSE", 1 * time.Second, 50 * time.Millisecond},
		{"SIGPWM25", 200 * time.Millisecond, 50 * time.Millisecond},
	}
	for _, s := range signals {
		if err := add(newSignalPin(k, s.name, s.period, s.high)); err != nil {
			return pins, err
		}
	}
	return pins, nil
}

func closePins(pins []GPIOPin) {
	for _, p := range pins {
		if c, ok := p.(io.Closer); ok {
			c.Close()
		}
	}
}

func (h *hostHAL) Logger() Logger { return h.logger }
func (h *hostHAL) LED() LED       { return h.led }
func (h *hostHAL) GPIO() GPIO     { return h.gpio }
func (h *hostHAL) Serial() Serial { return h.serial }

func (h *hostHAL) Close() error {
	var gerr error
	if c, ok := h.gpio.(io.Closer); ok {
		gerr = c.Close()
	}
	return errors.Join(gerr, h.serial.Close())
}

// StreamSerialOf returns the host serial port, for injecting received bytes.
func StreamSerialOf(h HAL) (*StreamSerial, bool) {
	s, ok := h.Serial().(*StreamSerial)
	return s, ok
}

type glogLogger struct{}

func (glogLogger) WriteLineString(s string) { glog.Info(s) }
func (glogLogger) WriteLineBytes(b []byte)  { glog.Info(string(b)) }

type hostLogger struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *hostLogger) WriteLineString(s string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintln(l.w, s)
}

func (l *hostLogger) WriteLineBytes(b []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.w.Write(b)
	l.w.Write([]byte{'\n'})
}

type hostLED struct {
	on     atomic.Bool
	logger Logger
}

func (l *hostLED) High() {
	l.on.Store(true)
	l.logger.WriteLineString("led: HIGH")
}

func (l *hostLED) Low() {
	l.on.Store(false)
	l.logger.WriteLineString("led: LOW")
}

// On reports the last level driven onto the LED.
func (l *hostLED) On() bool { return l.on.Load() }
