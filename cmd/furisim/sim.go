//go:build !tinygo

package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/golang/glog"
	"golang.org/x/sync/errgroup"

	"furi/dolphin"
	"furi/furi"
	"furi/gui"
	"furi/hal"
	"furi/kernel"
)

type options struct {
	streamBytes int
	workers     int
	blinks      int
	statePath   string
	render      bool
}

type env struct {
	k    *kernel.Host
	hal  hal.HAL
	opts options
	out  io.Writer
}

type scenario func(ctx context.Context, e *env) error

var scenarios = map[string]scenario{
	"stream":  streamScenario,
	"locks":   lockScenario,
	"gpio":    gpioScenario,
	"serial":  serialScenario,
	"dolphin": dolphinScenario,
	"gui":     guiScenario,
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func selectScenarios(list string) ([]string, error) {
	var out []string
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := scenarios[name]; !ok {
			return nil, fmt.Errorf("unknown scenario %q (have %s)", name, strings.Join(scenarioNames(), ", "))
		}
		out = append(out, name)
	}
	return out, nil
}

// run boots the services, runs the selected scenarios concurrently and
// shuts everything down again.
func run(ctx context.Context, k *kernel.Host, selected []string, opts options) (err error) {
	h, err := hal.New(k, hal.Config{SerialTx: os.Stdout})
	if err != nil {
		return fmt.Errorf("hal: %w", err)
	}
	defer func() { err = errors.Join(err, h.Close()) }()

	initial, err := loadState(opts.statePath)
	if err != nil {
		return err
	}
	if err := dolphin.Register(k, dolphin.Config{Initial: initial}); err != nil {
		return fmt.Errorf("dolphin: %w", err)
	}
	defer func() {
		if serr := saveState(k, opts.statePath); serr != nil {
			err = errors.Join(err, serr)
		}
		err = errors.Join(err, dolphin.Unregister(k))
	}()

	e := &env{k: k, hal: h, opts: opts, out: os.Stdout}
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range selected {
		name := name
		fn := scenarios[name]
		g.Go(func() error {
			if err := fn(gctx, e); err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			glog.Infof("furisim: scenario %s ok", name)
			return nil
		})
	}
	return g.Wait()
}

func loadState(path string) (dolphin.State, error) {
	if path == "" {
		return dolphin.State{}, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return dolphin.State{}, nil
	}
	if err != nil {
		return dolphin.State{}, err
	}
	defer f.Close()
	return dolphin.DecodeState(f)
}

func saveState(k kernel.Kernel, path string) error {
	if path == "" {
		return nil
	}
	d, err := dolphin.Open(k)
	if err != nil {
		return err
	}
	defer d.Close()
	if err := d.Flush(furi.Forever); err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := d.Save(&buf); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// join waits for a thread whose body reports an error.
func join(h *furi.JoinHandle[error]) error {
	werr, err := h.Join()
	if err != nil {
		return err
	}
	return werr
}

func streamScenario(ctx context.Context, e *env) error {
	s, err := furi.NewStreamBuffer(e.k, 64, 16)
	if err != nil {
		return err
	}
	defer s.Close()

	n := e.opts.streamBytes
	payload := make([]byte, n)
	for i := range payload {
		payload[i] = byte(i*31 + i>>8)
	}
	want := crc32.ChecksumIEEE(payload)

	var sent atomic.Bool
	producer, err := furi.Spawn(furi.NewBuilder(e.k).Name("StreamTx"), func() error {
		defer sent.Store(true)
		_, err := s.Writer(furi.Forever).Write(payload)
		return err
	})
	if err != nil {
		return err
	}
	consumer, err := furi.Spawn(furi.NewBuilder(e.k).Name("StreamRx").Priority(furi.PriorityHigh), func() uint32 {
		h := crc32.NewIEEE()
		buf := make([]byte, 24)
		for got := 0; got < n; {
			m := s.Receive(buf, furi.Millis(50))
			h.Write(buf[:m])
			got += m
			if m == 0 && (ctx.Err() != nil || sent.Load() && s.IsEmpty()) {
				break
			}
		}
		return h.Sum32()
	})
	if err != nil {
		producer.Close()
		return err
	}
	if err := join(producer); err != nil {
		consumer.Close()
		return err
	}
	got, err := consumer.Join()
	if err != nil {
		return err
	}
	if got != want {
		return fmt.Errorf("crc %08x, want %08x", got, want)
	}
	fmt.Fprintf(e.out, "stream: %d bytes crc=%08x\n", n, got)
	return nil
}

func lockScenario(ctx context.Context, e *env) error {
	const rounds = 200
	m, err := furi.NewMutex(e.k, 0)
	if err != nil {
		return err
	}
	defer m.Close()

	handles := make([]*furi.JoinHandle[error], 0, e.opts.workers)
	for i := 0; i < e.opts.workers; i++ {
		h, err := furi.Spawn(furi.NewBuilder(e.k).Name(fmt.Sprintf("Locker%d", i)), func() error {
			for j := 0; j < rounds; j++ {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if err := m.With(func(v *int) error {
					*v++
					return nil
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
		handles = append(handles, h)
	}
	var errs []error
	for _, h := range handles {
		errs = append(errs, join(h))
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}
	var total int
	if err := m.With(func(v *int) error {
		total = *v
		return nil
	}); err != nil {
		return err
	}
	if total != e.opts.workers*rounds {
		return fmt.Errorf("counter %d, want %d", total, e.opts.workers*rounds)
	}
	fmt.Fprintf(e.out, "locks: %d workers x %d rounds ok\n", e.opts.workers, rounds)
	return nil
}

func gpioScenario(ctx context.Context, e *env) error {
	led := e.hal.GPIO().Lookup("LED")
	sig := e.hal.GPIO().Lookup("SIG5HZ")
	if led == nil || sig == nil {
		return errors.New("missing LED or SIG5HZ pin")
	}
	if err := led.Configure(hal.GPIOModeOutput, hal.GPIOPullNone); err != nil {
		return err
	}
	if err := sig.Configure(hal.GPIOModeInput, hal.GPIOPullNone); err != nil {
		return err
	}

	h, err := furi.Spawn(furi.NewBuilder(e.k).Name("Blink"), func() error {
		highs := 0
		err := hal.Run(ctx, hal.RunConfig{Hz: 20, Ticks: uint64(e.opts.blinks * 2)}, func(tick uint64) error {
			if lv, err := sig.Read(); err == nil && lv {
				highs++
			}
			return led.Write(tick%2 == 0)
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(e.out, "gpio: %d blinks, SIG5HZ high on %d samples\n", e.opts.blinks, highs)
		return led.Write(false)
	})
	if err != nil {
		return err
	}
	return join(h)
}

func serialScenario(ctx context.Context, e *env) error {
	port, ok := hal.StreamSerialOf(e.hal)
	if !ok {
		return errors.New("serial port is not stream backed")
	}
	msg := []byte("hello from the other side\n")
	if n := port.Inject(msg); n != len(msg) {
		return fmt.Errorf("injected %d of %d bytes", n, len(msg))
	}
	h, err := furi.Spawn(furi.NewBuilder(e.k).Name("SerialEcho"), func() error {
		buf := make([]byte, 8)
		echoed := 0
		for echoed < len(msg) && ctx.Err() == nil {
			n, err := port.Read(buf)
			if errors.Is(err, furi.ErrTimeout) {
				continue
			}
			if err != nil {
				return err
			}
			if _, err := port.Write(buf[:n]); err != nil {
				return err
			}
			echoed += n
		}
		return ctx.Err()
	})
	if err != nil {
		return err
	}
	return join(h)
}

func dolphinScenario(ctx context.Context, e *env) error {
	d, err := dolphin.Open(e.k)
	if err != nil {
		return err
	}
	defer d.Close()
	for _, deed := range []dolphin.Deed{
		dolphin.DeedSubGhzReceiverInfo,
		dolphin.DeedNfcReadSuccess,
		dolphin.DeedIrLearnSuccess,
		dolphin.DeedPluginGameWin,
	} {
		if err := d.Deed(deed); err != nil {
			return err
		}
	}
	if err := d.Flush(furi.Millis(1000)); err != nil {
		return err
	}
	st, err := d.Stats()
	if err != nil {
		return err
	}
	fmt.Fprintf(e.out, "dolphin: level %d, %d xp, %d to next, butthurt %d\n",
		st.Level, st.Icounter, st.NextLevelIn, st.Butthurt)
	return nil
}

func guiScenario(ctx context.Context, e *env) error {
	present := func(f gui.Frame) error {
		if e.opts.render {
			_, err := io.WriteString(e.out, f.String())
			return err
		}
		glog.V(1).Infof("gui: frame with %d pixels", f.Count())
		return nil
	}
	c, err := gui.NewCanvas(e.k, present)
	if err != nil {
		return err
	}
	if err := furi.CreateRecord(e.k, gui.RecordName, c); err != nil {
		c.Close()
		return err
	}
	defer furi.DestroyRecord(e.k, gui.RecordName)

	h, err := furi.Spawn(furi.NewBuilder(e.k).Name("GuiSrv"), func() error {
		rec, err := furi.OpenRecord(e.k, gui.RecordName)
		if err != nil {
			return err
		}
		defer rec.Close()
		canvas, _ := furi.RecordData[*gui.Canvas](rec)

		d, err := dolphin.Open(e.k)
		if err != nil {
			return err
		}
		defer d.Close()
		st, err := d.Stats()
		if err != nil {
			return err
		}

		err = canvas.Draw(func(dr *gui.Drawer) error {
			dr.Clear()
			dr.DrawFrame(0, 0, gui.Width, gui.Height)
			dr.DrawStrAligned(gui.Width/2, 2, gui.AlignCenter, gui.AlignTop, "furi")
			dr.DrawLine(4, 12, gui.Width-5, 12)
			dr.DrawStr(4, 24, fmt.Sprintf("Lvl %d  XP %d", st.Level, st.Icounter))
			dr.DrawStr(4, 34, fmt.Sprintf("Mood %d/%d", dolphin.ButthurtMax-st.Butthurt, dolphin.ButthurtMax))
			dr.DrawBox(4, 40, int(st.Icounter%120), 4)
			dr.DrawStrAligned(gui.Width-4, gui.Height-3, gui.AlignRight, gui.AlignBottom, fmt.Sprintf("%d thr", e.k.Stats().Threads))
			return nil
		})
		if err != nil {
			return err
		}
		return canvas.Commit()
	})
	if err != nil {
		return err
	}
	return join(h)
}
