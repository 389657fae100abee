// Package vm executes a compiled bytecode.Program against a tape, an
// optional input stream, and an optional output stream.
package vm

import (
	"bytes"
	"io"

	"brainfuck/internal/bferrors"
	"brainfuck/internal/bytecode"
	"brainfuck/internal/config"
)

// Result is the machine state after a successful run.
type Result struct {
	Tape        []byte
	Pointer     int
	OpsExecuted int
}

// Execute runs prog against tape starting at pointer, honoring cfg's
// op_limit, EOF behavior and output flushing. The pointer is bounded by
// len(tape); cfg.TapeSize is not consulted here, so callers that want a
// fresh tape allocate one themselves. input/output may be nil, in which
// case In/Out become no-ops.
func Execute(
	prog *bytecode.Program,
	tape []byte,
	pointer int,
	cfg config.Config,
	input io.Reader,
	output io.Writer,
) (Result, error) {
	ops := prog.Ops
	spans := prog.Spans
	tapeLen := len(tape)
	ip := 0
	opCount := 0
	var readBuf [1]byte

	for ip < len(ops) {
		op := ops[ip]
		span := spans[ip]

		switch op.Kind {
		case bytecode.Add:
			tape[pointer] = tape[pointer] + op.N

		case bytecode.Move:
			newPtr := int64(pointer) + int64(op.Offset)
			if newPtr < 0 {
				return Result{}, bferrors.NewPointerUnderflow(span)
			}
			if newPtr >= int64(tapeLen) {
				return Result{}, bferrors.NewPointerOverflow(span, int(newPtr), tapeLen)
			}
			pointer = int(newPtr)

		case bytecode.Set:
			tape[pointer] = op.N

		case bytecode.Mul:
			target := int64(pointer) + int64(op.Offset)
			if target < 0 {
				return Result{}, bferrors.NewPointerUnderflow(span)
			}
			if target >= int64(tapeLen) {
				return Result{}, bferrors.NewPointerOverflow(span, int(target), tapeLen)
			}
			t := int(target)
			tape[t] = tape[t] + tape[pointer]*op.N

		case bytecode.Scan:
			newPtr, err := scan(tape, pointer, op.Offset, span)
			if err != nil {
				return Result{}, err
			}
			pointer = newPtr

		case bytecode.Open:
			if tape[pointer] == 0 {
				ip = op.Target()
			}

		case bytecode.Close:
			if tape[pointer] != 0 {
				ip = op.Target()
			}

		case bytecode.In:
			if input != nil {
				n, err := input.Read(readBuf[:])
				if n == 0 {
					if err == nil || err == io.EOF {
						applyEOF(tape, pointer, cfg.EofBehavior)
					} else {
						return Result{}, bferrors.NewIoError(span, err)
					}
				} else {
					tape[pointer] = readBuf[0]
				}
			}

		case bytecode.Out:
			if output != nil {
				if _, err := output.Write(tape[pointer : pointer+1]); err != nil {
					return Result{}, bferrors.NewIoError(span, err)
				}
				if cfg.FlushOutput {
					if f, ok := output.(interface{ Flush() error }); ok {
						if err := f.Flush(); err != nil {
							return Result{}, bferrors.NewIoError(span, err)
						}
					}
				}
			}
		}

		ip++
		opCount++
		if cfg.HasOpLimit && cfg.OpLimit >= 0 && opCount > cfg.OpLimit {
			return Result{}, bferrors.NewOperationLimit(span)
		}
	}

	return Result{Tape: tape, Pointer: pointer, OpsExecuted: opCount}, nil
}

func applyEOF(tape []byte, pointer int, behavior config.EofBehavior) {
	switch behavior {
	case config.EofZero:
		tape[pointer] = 0
	case config.EofUnchanged:
		// leave as-is
	case config.EofMaxValue:
		tape[pointer] = 255
	}
}

// scan implements the Scan op: stride ±1 is a byte-search, any other
// stride steps by |stride| and checks zero at each landing. The
// negative-stride path checks bounds before stepping, so a scan that
// starts on an already-zero cell never touches bounds at all.
func scan(tape []byte, pointer int, stride int32, span bytecode.Span) (int, error) {
	tapeLen := len(tape)

	switch {
	case stride == 1:
		if i := bytes.IndexByte(tape[pointer:], 0); i >= 0 {
			return pointer + i, nil
		}
		return 0, bferrors.NewPointerOverflow(span, tapeLen, tapeLen)

	case stride == -1:
		if i := bytes.LastIndexByte(tape[:pointer+1], 0); i >= 0 {
			return i, nil
		}
		return 0, bferrors.NewPointerUnderflow(span)

	case stride > 0:
		step := int(stride)
		p := pointer
		for p < tapeLen && tape[p] != 0 {
			p += step
		}
		if p >= tapeLen {
			return 0, bferrors.NewPointerOverflow(span, p, tapeLen)
		}
		return p, nil

	default:
		step := int(-stride)
		p := pointer
		for tape[p] != 0 {
			if p < step {
				return 0, bferrors.NewPointerUnderflow(span)
			}
			p -= step
		}
		return p, nil
	}
}
