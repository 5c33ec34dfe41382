package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/AbhishekMusku/spraptor/engine"
)

const (
	prompt       = "\033[32m>\033[0m "
	resultPrefix = "\033[31m=\033[0m "
)

// runRepl feeds triples typed as "row col value [last]" one at a time,
// printing completed rows as they drain. Grounded on the example
// pack's readline-based Repl loop, narrowed from a full language
// evaluator down to one line of triple input per iteration.
func runRepl(e *engine.Engine) {
	l, err := readline.NewEx(&readline.Config{
		Prompt:            prompt,
		HistoryFile:       ".spraptor-history.tmp",
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		fmt.Fprintln(readline.Stdout, err)
		return
	}
	defer l.Close()
	l.CaptureExitSignal()

	for {
		line, err := l.Readline()
		if err == readline.ErrInterrupt {
			continue
		} else if err == io.EOF {
			break
		} else if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "finish" {
			printRecords(e.Finish())
			continue
		}

		t, err := parseTriple(line)
		if err != nil {
			fmt.Println(err)
			continue
		}

		res := e.Submit(t)
		if res == engine.NotReady {
			printRecords(e.Drain())
			res = e.Submit(t)
		}
		switch res {
		case engine.Refused:
			fmt.Println("refused: column out of range")
		case engine.RowBoundary:
			printRecords(e.Drain())
		}
	}
}

// parseTriple parses "row col value [last]" typed at the REPL prompt.
func parseTriple(line string) (engine.Triple, error) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return engine.Triple{}, fmt.Errorf("want \"row col value [last]\", got %q", line)
	}
	row, err := strconv.ParseUint(fields[0], 10, 16)
	if err != nil {
		return engine.Triple{}, fmt.Errorf("bad row %q: %w", fields[0], err)
	}
	col, err := strconv.ParseUint(fields[1], 10, 16)
	if err != nil {
		return engine.Triple{}, fmt.Errorf("bad col %q: %w", fields[1], err)
	}
	value, err := strconv.ParseInt(fields[2], 10, 32)
	if err != nil {
		return engine.Triple{}, fmt.Errorf("bad value %q: %w", fields[2], err)
	}
	last := len(fields) >= 4 && fields[3] == "last"
	return engine.Triple{Row: uint16(row), Col: uint16(col), Value: int32(value), Last: last}, nil
}

func printRecords(recs []engine.OutputRecord) {
	for _, r := range recs {
		fmt.Printf("%s%d,%d,%d\n", resultPrefix, r.Row, r.Col, r.Value)
	}
}
