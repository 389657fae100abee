package main

import (
	"context"
	"log"
	"time"

	"brainfuck/internal/batchproto"
	"brainfuck/internal/config"
	"brainfuck/internal/runid"
	"brainfuck/internal/tracestore"
)

// persistTracedRun records one run's outcome in the trace store, if one
// is configured. Failures to persist are logged, never fatal: the trace
// store is an observability aid, not part of the interpreter's contract.
func persistTracedRun(trace *tracestore.Store, fingerprint string, cfg config.Config, resp batchproto.Response) {
	if trace == nil {
		return
	}
	now := time.Now()
	record := tracestore.Record{
		RunID:       runid.New(),
		Fingerprint: fingerprint,
		StartedAt:   now,
		FinishedAt:  now,
		OpLimit:     cfg.OpLimit,
		TapeSize:    cfg.TapeSize,
		Succeeded:   resp.Ok,
		ErrorDetail: resp.Error,
		OutputBytes: len(resp.Output),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := trace.Insert(ctx, record); err != nil {
		log.Printf("bf: trace insert failed: %v", err)
	}
}
