package hal

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"furi/furi"
	"furi/kernel"
)

// GPIOMode selects whether a pin is an input or output.
type GPIOMode uint8

const (
	GPIOModeInput GPIOMode = iota
	GPIOModeOutput
)

// GPIOPull selects the pull resistor configuration.
type GPIOPull uint8

const (
	GPIOPullNone GPIOPull = iota
	GPIOPullUp
	GPIOPullDown
)

// GPIOCaps declares what operations a pin supports.
type GPIOCaps uint8

const (
	GPIOCapInput GPIOCaps = 1 << iota
	GPIOCapOutput
	GPIOCapPullUp
	GPIOCapPullDown
)

// GPIO provides access to general-purpose IO pins.
type GPIO interface {
	PinCount() int
	Pin(id int) GPIOPin
	// Lookup returns the pin with the given name, or nil.
	Lookup(name string) GPIOPin
}

// GPIOPin is a single digital IO pin. Pin state lives behind a kernel
// mutex, so any kernel thread may drive it.
type GPIOPin interface {
	Name() string
	Caps() GPIOCaps
	Configure(mode GPIOMode, pull GPIOPull) error
	Read() (level bool, err error)
	Write(level bool) error
}

type nullGPIO struct{}

func (nullGPIO) PinCount() int         { return 0 }
func (nullGPIO) Pin(id int) GPIOPin    { return nil }
func (nullGPIO) Lookup(string) GPIOPin { return nil }
func (nullGPIO) Close() error          { return nil }

type virtualGPIO struct {
	pins []GPIOPin
}

func newVirtualGPIO(pins []GPIOPin) GPIO {
	if len(pins) == 0 {
		return nullGPIO{}
	}
	return &virtualGPIO{pins: pins}
}

func (g *virtualGPIO) PinCount() int {
	if g == nil {
		return 0
	}
	return len(g.pins)
}

func (g *virtualGPIO) Pin(id int) GPIOPin {
	if g == nil || id < 0 || id >= len(g.pins) {
		return nil
	}
	return g.pins[id]
}

func (g *virtualGPIO) Lookup(name string) GPIOPin {
	if g == nil {
		return nil
	}
	for _, p := range g.pins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// Close frees every pin's kernel mutex.
func (g *virtualGPIO) Close() error {
	var errs []error
	for _, p := range g.pins {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

func checkConfig(name string, caps GPIOCaps, mode GPIOMode, pull GPIOPull) error {
	switch mode {
	case GPIOModeInput:
		if caps&GPIOCapInput == 0 {
			return fmt.Errorf("gpio: pin %s: input unsupported", name)
		}
	case GPIOModeOutput:
		if caps&GPIOCapOutput == 0 {
			return fmt.Errorf("gpio: pin %s: output unsupported", name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid mode", name)
	}

	switch pull {
	case GPIOPullNone:
	case GPIOPullUp:
		if caps&GPIOCapPullUp == 0 {
			return fmt.Errorf("gpio: pin %s: pull-up unsupported", name)
		}
	case GPIOPullDown:
		if caps&GPIOCapPullDown == 0 {
			return fmt.Errorf("gpio: pin %s: pull-down unsupported", name)
		}
	default:
		return fmt.Errorf("gpio: pin %s: invalid pull", name)
	}
	return nil
}

type pinState struct {
	mode  GPIOMode
	pull  GPIOPull
	level bool
}

type virtualPin struct {
	name  string
	caps  GPIOCaps
	state *furi.Mutex[pinState]
}

func newVirtualPin(k kernel.Mutexes, name string, caps GPIOCaps) (*virtualPin, error) {
	state, err := furi.NewMutex(k, pinState{mode: GPIOModeInput, pull: GPIOPullNone})
	if err != nil {
		return nil, fmt.Errorf("gpio: pin %s: %w", name, err)
	}
	return &virtualPin{name: name, caps: caps, state: state}, nil
}

func (p *virtualPin) Name() string   { return p.name }
func (p *virtualPin) Caps() GPIOCaps { return p.caps }

func (p *virtualPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if err := checkConfig(p.name, p.caps, mode, pull); err != nil {
		return err
	}
	return p.state.With(func(s *pinState) error {
		s.mode = mode
		s.pull = pull
		// An undriven input follows its pull resistor.
		if mode == GPIOModeInput && pull != GPIOPullNone {
			s.level = pull == GPIOPullUp
		}
		return nil
	})
}

func (p *virtualPin) Read() (level bool, err error) {
	err = p.state.With(func(s *pinState) error {
		if s.mode != GPIOModeInput && s.mode != GPIOModeOutput {
			return fmt.Errorf("gpio: pin %s: not configured", p.name)
		}
		level = s.level
		return nil
	})
	return level, err
}

func (p *virtualPin) Write(level bool) error {
	return p.state.With(func(s *pinState) error {
		if s.mode != GPIOModeOutput {
			return fmt.Errorf("gpio: pin %s: not in output mode", p.name)
		}
		s.level = level
		return nil
	})
}

func (p *virtualPin) Close() error { return p.state.Close() }

type signalPin struct {
	name  string
	state *furi.Mutex[pinState]

	t0     time.Time
	now    func() time.Time
	period time.Duration
	high   time.Duration
}

func newSignalPin(k kernel.Mutexes, name string, period, high time.Duration) (GPIOPin, error) {
	return newSignalPinWithClock(k, name, period, high, time.Now)
}

func newSignalPinWithClock(k kernel.Mutexes, name string, period, high time.Duration, now func() time.Time) (GPIOPin, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("gpio: signal pin needs a name")
	}
	if now == nil {
		now = time.Now
	}
	if period <= 0 {
		period = 1 * time.Second
	}
	if high < 0 {
		high = 0
	}
	if high > period {
		high = period
	}
	state, err := furi.NewMutex(k, pinState{mode: GPIOModeInput, pull: GPIOPullNone})
	if err != nil {
		return nil, fmt.Errorf("gpio: pin %s: %w", name, err)
	}
	return &signalPin{
		name:   name,
		state:  state,
		t0:     now(),
		now:    now,
		period: period,
		high:   high,
	}, nil
}

func (p *signalPin) Name() string   { return p.name }
func (p *signalPin) Caps() GPIOCaps { return GPIOCapInput }

func (p *signalPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeInput {
		return fmt.Errorf("gpio: pin %s: only input supported", p.name)
	}
	if pull != GPIOPullNone {
		return fmt.Errorf("gpio: pin %s: pull unsupported", p.name)
	}
	return p.state.With(func(s *pinState) error {
		s.mode = mode
		s.pull = pull
		return nil
	})
}

func (p *signalPin) Read() (level bool, err error) {
	err = p.state.With(func(s *pinState) error {
		if s.mode != GPIOModeInput {
			return fmt.Errorf("gpio: pin %s: not configured for input", p.name)
		}
		elapsed := p.now().Sub(p.t0)
		if elapsed < 0 {
			elapsed = -elapsed
		}
		level = elapsed%p.period < p.high
		return nil
	})
	return level, err
}

func (p *signalPin) Write(level bool) error {
	_ = level
	return fmt.Errorf("gpio: pin %s: output unsupported", p.name)
}

func (p *signalPin) Close() error { return p.state.Close() }

type ledPin struct {
	led   LED
	name  string
	level *furi.Mutex[bool]
}

func newLEDPin(k kernel.Mutexes, name string, led LED) (GPIOPin, error) {
	if led == nil {
		return nil, fmt.Errorf("gpio: pin %s: no led", name)
	}
	level, err := furi.NewMutex(k, false)
	if err != nil {
		return nil, fmt.Errorf("gpio: pin %s: %w", name, err)
	}
	return &ledPin{led: led, name: name, level: level}, nil
}

func (p *ledPin) Name() string   { return p.name }
func (p *ledPin) Caps() GPIOCaps { return GPIOCapOutput }

func (p *ledPin) Configure(mode GPIOMode, pull GPIOPull) error {
	if mode != GPIOModeOutput {
		return fmt.Errorf("gpio: pin %s: only output supported", p.name)
	}
	if pull != GPIOPullNone {
		return fmt.Errorf("gpio: pin %s: pull unsupported", p.name)
	}
	return nil
}

func (p *ledPin) Read() (level bool, err error) {
	err = p.level.With(func(v *bool) error {
		level = *v
		return nil
	})
	return level, err
}

func (p *ledPin) Write(level bool) error {
	return p.level.With(func(v *bool) error {
		*v = level
		if level {
			p.led.High()
		} else {
			p.led.Low()
		}
		return nil
	})
}

func (p *ledPin) Close() error { return p.level.Close() }
