// ═══════════════════════════════════════════════════════════════════════════
// spraptor - SpGEMM Row-Wise Accumulation Engine CLI
// ═══════════════════════════════════════════════════════════════════════════
//
// Wires config -> transport -> engine -> stdout for one of three intake
// modes: a framed binary stream (-in), an s2-compressed bulk batch
// (-bulk), or an interactive REPL (-repl) for feeding triples by hand.
//
// ═══════════════════════════════════════════════════════════════════════════

package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/AbhishekMusku/spraptor/config"
	"github.com/AbhishekMusku/spraptor/engine"
	"github.com/AbhishekMusku/spraptor/transport"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML engine config (defaults to B=8,D=256)")
		inPath     = flag.String("in", "", "path to a framed binary triple stream (\"-\" for stdin)")
		bulkPath   = flag.String("bulk", "", "path to an s2-compressed bulk frame batch")
		repl       = flag.Bool("repl", false, "start an interactive REPL instead of reading a file")
		stats      = flag.Bool("stats", false, "print cycle count and diagnostic stats to stderr on exit")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	e := engine.New(cfg)

	switch {
	case *repl:
		runRepl(e)
	case *bulkPath != "":
		if err := runBulk(e, *bulkPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case *inPath != "":
		if err := runStream(e, *inPath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintln(os.Stderr, "spraptor: one of -in, -bulk, or -repl is required")
		flag.Usage()
		os.Exit(2)
	}

	if *stats {
		printStats(e)
	}
}

// printStats reports the engine's cycle count alongside its diagnostic
// log's push/evict/resident counters, the run summary a driver needs to
// judge whether the diagnostic log's bounded capacity is being exceeded.
func printStats(e *engine.Engine) {
	s := e.Log().Stats()
	fmt.Fprintf(os.Stderr, "cycles=%d run=%s diag_pushed=%d diag_evicted=%d diag_resident=%d\n",
		e.Cycles(), s.RunID, s.Pushed, s.Evicted, s.Resident)
}

func runStream(e *engine.Engine, path string) error {
	r, err := openInput(path)
	if err != nil {
		return err
	}
	defer r.Close()

	fr := transport.NewFrameReader(r)
	return feedAndDrain(e, fr)
}

func runBulk(e *engine.Engine, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("spraptor: read %s: %w", path, err)
	}
	fr, err := transport.NewBulkDecoder().Decode(raw)
	if err != nil {
		return err
	}
	return feedAndDrain(e, fr)
}

// feedAndDrain submits every frame in fr to e, draining rows as they
// complete and at end of stream, writing records to stdout.
func feedAndDrain(e *engine.Engine, fr *transport.FrameReader) error {
	out := transport.NewRecordWriter(os.Stdout)
	defer out.Flush()

	for {
		t, err := fr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		for {
			res := e.Submit(t)
			if res == engine.NotReady {
				for _, rec := range e.Drain() {
					if err := out.Write(rec); err != nil {
						return err
					}
				}
				continue
			}
			if res == engine.RowBoundary {
				for _, rec := range e.Drain() {
					if err := out.Write(rec); err != nil {
						return err
					}
				}
			}
			break
		}
	}
	for _, rec := range e.Finish() {
		if err := out.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(bufio.NewReader(os.Stdin)), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("spraptor: open %s: %w", path, err)
	}
	return f, nil
}
