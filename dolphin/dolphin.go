// Package dolphin keeps the experience counter of the device mascot. The
// service runs its own thread and is shared with applications as the
// "dolphin" record.
package dolphin

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang/glog"

	"furi/furi"
	"furi/kernel"
)

// RecordName is the record the service is published under.
const RecordName = "dolphin"

// ErrUnknownDeed is returned for deeds outside the known table.
var ErrUnknownDeed = errors.New("dolphin: unknown deed")

const (
	eventDeed byte = iota + 1
	eventSulk
	eventStop

	eventSize  = 2
	queueDepth = 8
)

// Stats summarizes the dolphin for display.
type Stats struct {
	Icounter    uint32
	Butthurt    uint32
	Level       int
	NextLevelIn uint32
	Deeds       uint32
}

// Config tunes the service.
type Config struct {
	// Now supplies the clock for the daily limit; nil means time.Now.
	Now func() time.Time
	// Initial seeds the state, e.g. from DecodeState.
	Initial State
}

type ledger struct {
	state     State
	processed uint64
}

// Service owns the dolphin state and the thread that applies deeds.
type Service struct {
	k      kernel.Kernel
	now    func() time.Time
	events *furi.MessageQueue
	send   *furi.Mutex[uint64]
	ledger *furi.Mutex[ledger]
	cond   *furi.Cond
	worker *furi.JoinHandle[error]
}

// Start allocates the service and its worker thread.
func Start(k kernel.Kernel, cfg Config) (*Service, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Service{k: k, now: cfg.Now}
	if err := s.init(k, cfg); err != nil {
		s.free()
		return nil, err
	}
	return s, nil
}

func (s *Service) init(k kernel.Kernel, cfg Config) (err error) {
	if s.events, err = furi.NewMessageQueue(k, queueDepth, eventSize); err != nil {
		return fmt.Errorf("dolphin: event queue: %w", err)
	}
	if s.send, err = furi.NewMutex(k, uint64(0)); err != nil {
		return fmt.Errorf("dolphin: send lock: %w", err)
	}
	if s.ledger, err = furi.NewMutex(k, ledger{state: cfg.Initial}); err != nil {
		return fmt.Errorf("dolphin: state lock: %w", err)
	}
	s.cond = furi.NewCond(s.ledger.Raw(), k.TickHz())

	b := furi.NewBuilder(k).Name("DolphinSrv").StackSize(1024).Priority(furi.PriorityLow)
	if s.worker, err = furi.Spawn(b, s.run); err != nil {
		return fmt.Errorf("dolphin: worker: %w", err)
	}
	return nil
}

func (s *Service) free() {
	if s.events != nil {
		s.events.Close()
	}
	if s.send != nil {
		s.send.Close()
	}
	if s.ledger != nil {
		s.ledger.Close()
	}
}

func (s *Service) run() error {
	msg := make([]byte, eventSize)
	for {
		if err := s.events.Get(msg, furi.Forever); err != nil {
			return err
		}
		stop := msg[0] == eventStop
		err := s.ledger.With(func(l *ledger) error {
			switch msg[0] {
			case eventDeed:
				d := Deed(msg[1])
				pts := l.state.apply(d, dayOf(s.now()))
				if glog.V(2) {
					glog.Infof("dolphin: deed %d app=%s +%d icounter=%d", d, d.App(), pts, l.state.Icounter)
				}
			case eventSulk:
				l.state.sulk()
			}
			l.processed++
			return nil
		})
		s.cond.Broadcast()
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
}

func dayOf(t time.Time) int64 {
	y, m, d := t.Date()
	return int64(y)*10000 + int64(m)*100 + int64(d)
}

func (s *Service) post(kind, arg byte, timeout furi.Duration) error {
	return s.send.With(func(queued *uint64) error {
		if err := s.events.Put([]byte{kind, arg}, timeout); err != nil {
			return err
		}
		*queued++
		return nil
	})
}

// Deed records that d happened. It is applied asynchronously.
func (s *Service) Deed(d Deed) error {
	if !d.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownDeed, d)
	}
	return s.post(eventDeed, byte(d), furi.Forever)
}

// Sulk makes the dolphin a little grumpier, as after a day of neglect.
func (s *Service) Sulk() error {
	return s.post(eventSulk, 0, furi.Forever)
}

// Flush waits until every event posted before the call has been applied.
func (s *Service) Flush(timeout furi.Duration) error {
	var target uint64
	if err := s.send.With(func(queued *uint64) error {
		target = *queued
		return nil
	}); err != nil {
		return err
	}

	g, err := s.ledger.Lock()
	if err != nil {
		return err
	}
	defer g.Unlock()
	for g.Value().processed < target {
		ok, err := s.cond.Wait(timeout)
		if err != nil {
			return err
		}
		if !ok && g.Value().processed < target {
			return fmt.Errorf("dolphin: flush: %w", furi.ErrTimeout)
		}
	}
	return nil
}

// Stats returns the current summary.
func (s *Service) Stats() (st Stats, err error) {
	err = s.ledger.With(func(l *ledger) error {
		st = Stats{
			Icounter:    l.state.Icounter,
			Butthurt:    l.state.Butthurt,
			Level:       Level(l.state.Icounter),
			NextLevelIn: PointsToNextLevel(l.state.Icounter),
			Deeds:       l.state.Deeds,
		}
		return nil
	})
	return st, err
}

// Save writes the current state to w.
func (s *Service) Save(w io.Writer) error {
	var snap State
	if err := s.ledger.With(func(l *ledger) error {
		snap = l.state
		return nil
	}); err != nil {
		return err
	}
	return snap.Encode(w)
}

// Close stops the worker and frees the service's kernel objects. Pending
// deeds are applied first.
func (s *Service) Close() error {
	if err := s.post(eventStop, 0, furi.Forever); err != nil {
		return err
	}
	werr, err := s.worker.Join()
	if err == nil {
		err = werr
	}
	return errors.Join(err, s.events.Close(), s.send.Close(), s.ledger.Close())
}

// Register starts the service and publishes it as RecordName. The record
// owns the service: it is closed when the record is destroyed and the last
// holder lets go.
func Register(k kernel.Kernel, cfg Config) error {
	s, err := Start(k, cfg)
	if err != nil {
		return err
	}
	if err := furi.CreateRecord(k, RecordName, s); err != nil {
		return errors.Join(err, s.Close())
	}
	return nil
}

// Unregister unpublishes the service.
func Unregister(k kernel.Kernel) error {
	return furi.DestroyRecord(k, RecordName)
}

// Handle is an application's reference to the dolphin record.
type Handle struct {
	*Service
	rec *furi.Record
}

// Open takes a reference to the published service.
func Open(k kernel.Kernel) (*Handle, error) {
	rec, err := furi.OpenRecord(k, RecordName)
	if err != nil {
		return nil, err
	}
	s, ok := furi.RecordData[*Service](rec)
	if !ok {
		err := fmt.Errorf("dolphin: record %q holds %T", RecordName, rec.Data())
		rec.Close()
		return nil, err
	}
	return &Handle{Service: s, rec: rec}, nil
}

// Close drops the reference. The service keeps running for other holders.
func (h *Handle) Close() error { return h.rec.Close() }
