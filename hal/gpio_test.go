package hal

import (
	"bytes"
	"strings"
	"testing"

	"furi/furi"
	"furi/kernel"
)

func TestVirtualPinConfigure(t *testing.T) {
	k := kernel.New(kernel.DefaultConfig())
	p, err := newVirtualPin(k, "GPIO1", GPIOCapInput|GPIOCapOutput|GPIOCapPullUp)
	if err != nil {
		t.Fatalf("newVirtualPin: %v", err)
	}
	defer p.Close()

	if err := p.Write(true); err == nil {
		t.Fatal("Write in input mode succeeded")
	}
	if err := p.Configure(GPIOModeInput, GPIOPullDown); err == nil {
		t.Fatal("pull-down accepted without capability")
	}
	if err := p.Configure(GPIOModeInput, GPIOPullUp); err != nil {
		t.Fatalf("Configure(input, up): %v", err)
	}
	if level, _ := p.Read(); !level {
		t.Fatal("pulled-up input reads low")
	}
	if err := p.Configure(GPIOModeOutput, GPIOPullNone); err != nil {
		t.Fatalf("Configure(output): %v", err)
	}
	if err := p.Write(false); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if level, _ := p.Read(); level {
		t.Fatal("Read() = true after Write(false)")
	}
}

func TestPinSharedAcrossThreads(t *testing.T) {
	k := kernel.New(kernel.DefaultConfig())
	p, err := newVirtualPin(k, "GPIO2", GPIOCapInput|GPIOCapOutput)
	if err != nil {
		t.Fatalf("newVirtualPin: %v", err)
	}
	if err := p.Configure(GPIOModeOutput, GPIOPullNone); err != nil {
		t.Fatalf("Configure: %v", err)
	}

	var handles []*furi.JoinHandle[error]
	for i := 0; i < 4; i++ {
		level := i%2 == 0
		h, err := furi.Spawn(furi.NewBuilder(k), func() error {
			for j := 0; j < 50; j++ {
				if err := p.Write(level); err != nil {
					return err
				}
				if _, err := p.Read(); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("Spawn: %v", err)
		}
		handles = append(handles, h)
	}
	for _, h := range handles {
		werr, err := h.Join()
		if err != nil || werr != nil {
			t.Fatalf("Join() = %v, %v", werr, err)
		}
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := k.Stats().Mutexes; n != 0 {
		t.Fatalf("Stats().Mutexes = %d, want 0", n)
	}
}

func TestHostHAL(t *testing.T) {
	k := kernel.New(kernel.DefaultConfig())
	var log, tx bytes.Buffer
	h, err := New(k, Config{Log: &log, SerialTx: &tx, SerialTimeout: furi.NoWait})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	gpio := h.GPIO()
	if gpio.PinCount() != 12 {
		t.Fatalf("PinCount() = %d, want 12", gpio.PinCount())
	}
	led := gpio.Lookup("LED")
	if led == nil || gpio.Pin(0) != led {
		t.Fatal("LED pin missing")
	}
	if gpio.Lookup("NOPE") != nil || gpio.Pin(99) != nil {
		t.Fatal("unknown pin resolved")
	}
	if err := led.Write(true); err != nil {
		t.Fatalf("LED Write: %v", err)
	}
	if !h.LED().(*hostLED).On() {
		t.Fatal("LED not driven high")
	}
	if !strings.Contains(log.String(), "led: HIGH") {
		t.Fatalf("log = %q, want led: HIGH", log.String())
	}

	if _, err := h.Serial().Write([]byte("ping")); err != nil {
		t.Fatalf("Serial Write: %v", err)
	}
	if tx.String() != "ping" {
		t.Fatalf("tx = %q, want ping", tx.String())
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if s := k.Stats(); s.Mutexes != 0 || s.Streams != 0 {
		t.Fatalf("Stats() = %+v after Close", s)
	}
}

func TestNullGPIO(t *testing.T) {
	g := newVirtualGPIO(nil)
	if g.PinCount() != 0 || g.Pin(0) != nil || g.Lookup("LED") != nil {
		t.Fatal("empty GPIO exposes pins")
	}
}
