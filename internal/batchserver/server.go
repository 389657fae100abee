package batchserver

import (
	"context"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"brainfuck"
	"brainfuck/internal/batchproto"
	"brainfuck/internal/config"
	"brainfuck/internal/runid"
	"brainfuck/internal/tracestore"
)

// Server runs one already-compiled program against any number of
// WebSocket clients, each free to submit many requests per connection.
type Server struct {
	prog        *brainfuck.Program
	baseCfg     config.Config
	fingerprint string
	trace       *tracestore.Store
	upgrader    websocket.Upgrader
	concurrency int
}

// New builds a Server serving prog under baseCfg. trace may be nil, in
// which case runs are not persisted. concurrency bounds how many
// in-flight requests a single connection may run at once; <= 0 means 4.
func New(prog *brainfuck.Program, baseCfg config.Config, fingerprint string, trace *tracestore.Store, concurrency int) *Server {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Server{
		prog:        prog,
		baseCfg:     baseCfg,
		fingerprint: fingerprint,
		trace:       trace,
		upgrader:    websocket.Upgrader{ReadBufferSize: 4096, WriteBufferSize: 4096},
		concurrency: concurrency,
	}
}

// ServeHTTP implements http.Handler, upgrading the connection and
// servicing requests on it until the client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("batchserver: upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	var writeMu sync.Mutex
	sem := make(chan struct{}, s.concurrency)
	var inflight sync.WaitGroup

	for {
		var req batchproto.Request
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("batchserver[%s]: read error: %v", sessionID, err)
			}
			break
		}

		sem <- struct{}{}
		inflight.Add(1)
		go func(req batchproto.Request) {
			defer inflight.Done()
			defer func() { <-sem }()

			resp := batchproto.Execute(s.prog, s.baseCfg, req)
			s.persist(batchproto.Resolve(s.baseCfg, req.Config), resp)

			writeMu.Lock()
			defer writeMu.Unlock()
			if err := conn.WriteJSON(resp); err != nil {
				log.Printf("batchserver[%s]: write error: %v", sessionID, err)
			}
		}(req)
	}

	inflight.Wait()
}

func (s *Server) persist(cfg config.Config, resp batchproto.Response) {
	if s.trace == nil {
		return
	}
	now := time.Now()
	record := tracestore.Record{
		RunID:       runid.New(),
		Fingerprint: s.fingerprint,
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
	if err := s.trace.Insert(ctx, record); err != nil {
		log.Printf("batchserver: trace insert failed: %v", err)
	}
}
