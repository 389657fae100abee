// Package brainfuck is the public library surface: compile Brainfuck
// source into a Program, then run it against a configurable tape and
// stream-based I/O.
package brainfuck

import (
	"io"

	"brainfuck/internal/bytecode"
	"brainfuck/internal/compiler"
	"brainfuck/internal/config"
	"brainfuck/internal/vm"
)

// Re-exported so callers never need to import the internal packages
// directly.
type (
	Config      = config.Config
	EofBehavior = config.EofBehavior
	Result      = vm.Result
)

const (
	EofZero      = config.EofZero
	EofUnchanged = config.EofUnchanged
	EofMaxValue  = config.EofMaxValue

	DefaultTapeSize = config.DefaultTapeSize
)

// DefaultConfig returns the library's default runtime policy: a
// 30000-byte tape, no operation limit, EofZero, flush after every write.
func DefaultConfig() Config { return config.Default() }

// Program is a compiled Brainfuck program, ready to run any number of
// times against independent tapes.
type Program struct {
	prog *bytecode.Program
}

// Compile compiles source into a Program. Returns a *bferrors.CompileError
// on an unmatched bracket.
func Compile(source string) (*Program, error) {
	prog, err := compiler.Compile(source)
	if err != nil {
		return nil, err
	}
	return &Program{prog: prog}, nil
}

// Disassemble renders the compiled instruction stream, one line per op.
func (p *Program) Disassemble() string {
	return bytecode.Disassemble(p.prog)
}

// Len reports the number of compiled instructions.
func (p *Program) Len() int { return p.prog.Len() }

// RunOptions customizes a single Run call. A zero-value tape field means
// a fresh zero-filled tape of cfg.TapeSize is allocated.
type RunOptions struct {
	Tape    []byte
	Pointer int
	Input   io.Reader
	Output  io.Writer
}

// Run executes p against cfg and opts, returning the final tape/pointer
// or a *bferrors.ExecutionError.
func (p *Program) Run(cfg Config, opts RunOptions) (Result, error) {
	tape := opts.Tape
	if tape == nil {
		size := cfg.TapeSize
		if size <= 0 {
			size = config.DefaultTapeSize
		}
		tape = make([]byte, size)
	}
	return vm.Execute(p.prog, tape, opts.Pointer, cfg, opts.Input, opts.Output)
}
