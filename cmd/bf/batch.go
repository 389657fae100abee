package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"golang.org/x/sync/errgroup"

	"brainfuck"
	"brainfuck/internal/batchproto"
	"brainfuck/internal/config"
	"brainfuck/internal/tracestore"
)

const batchConcurrency = 8

// runBatch reads newline-delimited JSON requests from in, each one
// describing a tape/pointer/input/config to run prog against, and writes
// one newline-delimited JSON response per line to out. Malformed lines
// and per-run errors are reported inline and never abort the stream.
// Up to batchConcurrency lines are queued and running ahead of the one
// whose reply is being awaited, so at most batchConcurrency+1 run at
// once; replies are still written in input order, each flushed as soon
// as its turn comes.
func runBatch(prog *brainfuck.Program, baseCfg config.Config, trace *tracestore.Store, sourceFingerprint string, in io.Reader, out io.Writer) error {
	pending := make(chan chan []byte, batchConcurrency)
	var g errgroup.Group

	go func() {
		defer close(pending)
		scanner := bufio.NewScanner(in)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" {
				continue
			}
			reply := make(chan []byte, 1)
			pending <- reply
			g.Go(func() error {
				reply <- processBatchLine(prog, baseCfg, trace, sourceFingerprint, line)
				return nil
			})
		}
		if err := scanner.Err(); err != nil {
			reply := make(chan []byte, 1)
			pending <- reply
			encoded, _ := json.Marshal(batchproto.Response{Ok: false, Error: fmt.Sprintf("failed to read input line: %s", err)})
			reply <- encoded
		}
	}()

	w := bufio.NewWriter(out)
	for reply := range pending {
		w.Write(<-reply)
		w.WriteByte('\n')
		if err := w.Flush(); err != nil {
			return fmt.Errorf("writing batch output: %w", err)
		}
	}
	_ = g.Wait()
	return nil
}

func processBatchLine(prog *brainfuck.Program, baseCfg config.Config, trace *tracestore.Store, sourceFingerprint string, line string) []byte {
	var req batchproto.Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		encoded, _ := json.Marshal(batchproto.Response{Ok: false, Error: fmt.Sprintf("invalid JSON: %s", err)})
		return encoded
	}

	resp := batchproto.Execute(prog, baseCfg, req)
	persistTracedRun(trace, sourceFingerprint, batchproto.Resolve(baseCfg, req.Config), resp)

	encoded, err := json.Marshal(resp)
	if err != nil {
		encoded, _ = json.Marshal(batchproto.Response{ID: req.ID, Ok: false, Error: err.Error()})
	}
	return encoded
}
