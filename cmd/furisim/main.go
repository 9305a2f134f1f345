//go:build !tinygo

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/golang/glog"

	"furi/internal/buildinfo"
	"furi/kernel"
)

func main() {
	cfg := kernel.DefaultConfig()
	var opts options
	var scenarios string
	var showVersion bool
	flag.Var(uintFlag{&cfg.TickHz}, "tick-hz", "Kernel tick rate.")
	flag.Int64Var(&cfg.HeapBytes, "heap", cfg.HeapBytes, "Kernel heap size in bytes.")
	flag.IntVar(&cfg.MaxThreads, "max-threads", cfg.MaxThreads, "Maximum live threads.")
	flag.StringVar(&scenarios, "run", strings.Join(scenarioNames(), ","), "Comma-separated scenarios to run.")
	flag.IntVar(&opts.streamBytes, "stream-bytes", 4096, "Bytes pushed through the stream scenario.")
	flag.IntVar(&opts.workers, "workers", 6, "Threads contending in the locks scenario.")
	flag.IntVar(&opts.blinks, "blinks", 4, "LED blinks in the gpio scenario.")
	flag.StringVar(&opts.statePath, "dolphin-state", "", "Load and save dolphin state at this path.")
	flag.BoolVar(&opts.render, "render", false, "Print the canvas after the gui scenario.")
	flag.BoolVar(&showVersion, "version", false, "Print the build version and exit.")
	flag.Parse()
	defer glog.Flush()

	if showVersion {
		fmt.Println(buildinfo.Describe("furisim"))
		return
	}

	selected, err := selectScenarios(scenarios)
	if err != nil {
		fatalf("%v", err)
	}

	kernel.SetCrashHandler(func(info kernel.CrashInfo) {
		glog.Errorf("furisim: crash in %s (%s): %s\n%s", info.Thread, info.Name, info.Message, info.Stack)
		glog.Flush()
		os.Exit(3)
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	k := kernel.New(cfg)
	glog.Infof("furisim %s: tick=%dHz heap=%d threads=%d", buildinfo.Short(), cfg.TickHz, cfg.HeapBytes, cfg.MaxThreads)
	if err := run(ctx, k, selected, opts); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		glog.Flush()
		fatalf("%v", err)
	}
	st := k.Stats()
	fmt.Printf("kernel: threads=%d mutexes=%d streams=%d queues=%d records=%d heap=%d/%d\n",
		st.Threads, st.Mutexes, st.Streams, st.Queues, st.Records, st.HeapUsed, st.HeapUsed+st.HeapFree)
}

func fatalf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(2)
}

type uintFlag struct{ v *uint32 }

func (f uintFlag) String() string {
	if f.v == nil {
		return "0"
	}
	return fmt.Sprint(*f.v)
}

func (f uintFlag) Set(s string) error {
	var n uint32
	if _, err := fmt.Sscan(s, &n); err != nil {
		return fmt.Errorf("invalid value %q", s)
	}
	*f.v = n
	return nil
}
