// Package batchproto defines the batch request/response schema shared by
// the CLI's newline-JSON mode (cmd/bf --batch) and internal/batchserver's
// WebSocket frames, so the two transports are interchangeable from the
// caller's perspective: encode a Request, get back a Response.
package batchproto

import (
	"bytes"
	"encoding/json"
	"strings"

	"brainfuck"
	"brainfuck/internal/config"
)

// Bytes marshals as a plain JSON array of numbers, not Go's default
// base64-string encoding of []byte. Tape and input/output fields on the
// wire are numeric arrays.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	if b == nil {
		return []byte("null"), nil
	}
	nums := make([]int, len(b))
	for i, v := range b {
		nums[i] = int(v)
	}
	return json.Marshal(nums)
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*b = nil
		return nil
	}
	var nums []int
	if err := json.Unmarshal(data, &nums); err != nil {
		return err
	}
	out := make([]byte, len(nums))
	for i, n := range nums {
		out[i] = byte(n)
	}
	*b = out
	return nil
}

// RunConfig overrides the server's base configuration for one request.
// Any field left nil falls back to the base config.
type RunConfig struct {
	TapeSize    *int    `json:"tape_size,omitempty"`
	OpLimit     *int    `json:"op_limit,omitempty"`
	EofBehavior *string `json:"eof_behavior,omitempty"`
}

// Request asks the server's already-compiled program to run once against
// the given tape/pointer/input, optionally overriding its base config.
// A nil Tape means "start from a fresh zero tape".
type Request struct {
	ID      *string    `json:"id,omitempty"`
	Tape    Bytes      `json:"tape,omitempty"`
	Pointer int        `json:"pointer,omitempty"`
	Input   Bytes      `json:"input,omitempty"`
	Config  *RunConfig `json:"config,omitempty"`
}

// Response is either a success or error reply, keyed by the same ID.
type Response struct {
	ID      *string `json:"id,omitempty"`
	Ok      bool    `json:"ok"`
	Tape    Bytes   `json:"tape,omitempty"`
	Pointer int     `json:"pointer,omitempty"`
	Output  Bytes   `json:"output,omitempty"`
	Error   string  `json:"error,omitempty"`
}

// TrimTape drops trailing zero bytes so unchanged tail cells don't
// bloat replies.
func TrimTape(tape []byte) []byte {
	end := len(tape)
	for end > 0 && tape[end-1] == 0 {
		end--
	}
	return tape[:end]
}

// Resolve merges a request's optional config onto base.
func Resolve(base config.Config, rc *RunConfig) config.Config {
	cfg := base
	if rc == nil {
		return cfg
	}
	if rc.TapeSize != nil {
		cfg.TapeSize = *rc.TapeSize
	}
	if rc.OpLimit != nil {
		cfg = cfg.WithOpLimit(*rc.OpLimit)
	}
	if rc.EofBehavior != nil {
		cfg.EofBehavior = config.ParseEofBehavior(strings.ToLower(*rc.EofBehavior))
	}
	return cfg
}

// Execute runs prog against one Request, merging its config onto base,
// and returns the Response to send back. It never returns a Go error:
// execution failures are reported inside the Response itself.
func Execute(prog *brainfuck.Program, base config.Config, req Request) Response {
	cfg := Resolve(base, req.Config)
	cfg.FlushOutput = false

	var tape []byte
	if req.Tape != nil {
		tape = []byte(req.Tape)
	} else {
		tape = make([]byte, cfg.TapeSize)
	}

	var out bytes.Buffer
	result, err := prog.Run(cfg, brainfuck.RunOptions{
		Tape:    tape,
		Pointer: req.Pointer,
		Input:   bytes.NewReader(req.Input),
		Output:  &out,
	})
	if err != nil {
		return Response{ID: req.ID, Ok: false, Error: err.Error()}
	}

	return Response{
		ID:      req.ID,
		Ok:      true,
		Tape:    Bytes(TrimTape(result.Tape)),
		Pointer: result.Pointer,
		Output:  Bytes(out.Bytes()),
	}
}
