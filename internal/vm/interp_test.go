package vm

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"brainfuck/internal/bferrors"
	"brainfuck/internal/bytecode"
	"brainfuck/internal/config"
)

func spansN(n int) []bytecode.Span {
	s := make([]bytecode.Span, n)
	return s
}

func cfg() config.Config { return config.Default() }

func TestScanStride1(t *testing.T) {
	prog := &bytecode.Program{Ops: []bytecode.Op{bytecode.OpScan(1)}, Spans: spansN(1)}

	res, err := Execute(prog, []byte{1, 2, 3, 0, 5}, 0, cfg(), nil, nil)
	if err != nil || res.Pointer != 3 {
		t.Fatalf("got %+v, %v", res, err)
	}

	_, err = Execute(prog, []byte{1, 2, 3, 4, 5}, 1, cfg(), nil, nil)
	var ee *bferrors.ExecutionError
	if !errors.As(err, &ee) || ee.Kind != bferrors.PointerOverflow {
		t.Fatalf("expected PointerOverflow, got %v", err)
	}

	prog = &bytecode.Program{Ops: []bytecode.Op{bytecode.OpScan(-1)}, Spans: spansN(1)}
	res, err = Execute(prog, []byte{0, 0, 3, 255, 5}, 4, cfg(), nil, nil)
	if err != nil || res.Pointer != 1 {
		t.Fatalf("got %+v, %v", res, err)
	}

	_, err = Execute(prog, []byte{1, 2, 3, 4, 5}, 1, cfg(), nil, nil)
	if !errors.As(err, &ee) || ee.Kind != bferrors.PointerUnderflow {
		t.Fatalf("expected PointerUnderflow, got %v", err)
	}
}

func TestScanStrideN(t *testing.T) {
	prog := &bytecode.Program{Ops: []bytecode.Op{bytecode.OpScan(2)}, Spans: spansN(1)}
	res, err := Execute(prog, []byte{1, 2, 3, 4, 0, 6}, 0, cfg(), nil, nil)
	if err != nil || res.Pointer != 4 {
		t.Fatalf("got %+v, %v", res, err)
	}

	_, err = Execute(prog, []byte{1, 0, 3, 4, 5, 6}, 0, cfg(), nil, nil)
	var ee *bferrors.ExecutionError
	if !errors.As(err, &ee) || ee.Kind != bferrors.PointerOverflow {
		t.Fatalf("expected PointerOverflow, got %v", err)
	}

	prog = &bytecode.Program{Ops: []bytecode.Op{bytecode.OpScan(-2)}, Spans: spansN(1)}
	res, err = Execute(prog, []byte{0, 1, 2, 3, 4}, 4, cfg(), nil, nil)
	if err != nil || res.Pointer != 0 {
		t.Fatalf("got %+v, %v", res, err)
	}

	_, err = Execute(prog, []byte{1, 1, 2, 3, 4}, 3, cfg(), nil, nil)
	if !errors.As(err, &ee) || ee.Kind != bferrors.PointerUnderflow {
		t.Fatalf("expected PointerUnderflow, got %v", err)
	}
}

func TestMul(t *testing.T) {
	prog := &bytecode.Program{Ops: []bytecode.Op{bytecode.OpMul(1, 3)}, Spans: spansN(1)}
	res, err := Execute(prog, []byte{5, 0, 0}, 0, cfg(), nil, nil)
	if err != nil || !bytes.Equal(res.Tape, []byte{5, 15, 0}) {
		t.Fatalf("got %+v, %v", res, err)
	}

	// wrapping
	prog = &bytecode.Program{Ops: []bytecode.Op{bytecode.OpMul(1, 2)}, Spans: spansN(1)}
	res, err = Execute(prog, []byte{200, 0, 0}, 0, cfg(), nil, nil)
	if err != nil || !bytes.Equal(res.Tape, []byte{200, 144, 0}) {
		t.Fatalf("got %+v, %v", res, err)
	}
}

func TestOpLimit(t *testing.T) {
	prog := &bytecode.Program{
		Ops: []bytecode.Op{
			bytecode.OpOpen(5),
			bytecode.OpAdd(255),
			bytecode.OpMove(1),
			bytecode.OpAdd(1),
			bytecode.OpMove(-1),
			bytecode.OpClose(0),
		},
		Spans: spansN(6),
	}

	limited := cfg().WithOpLimit(30)
	_, err := Execute(prog, []byte{10, 0}, 0, limited, nil, nil)
	var ee *bferrors.ExecutionError
	if !errors.As(err, &ee) || ee.Kind != bferrors.OperationLimit {
		t.Fatalf("expected OperationLimit, got %v", err)
	}

	ok := cfg().WithOpLimit(100)
	res, err := Execute(prog, []byte{10, 0}, 0, ok, nil, nil)
	if err != nil || !bytes.Equal(res.Tape, []byte{0, 10}) {
		t.Fatalf("got %+v, %v", res, err)
	}

	unlimited := cfg()
	_, err = Execute(prog, []byte{10, 0}, 0, unlimited, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEofBehaviors(t *testing.T) {
	prog := &bytecode.Program{Ops: []bytecode.Op{bytecode.OpIn()}, Spans: spansN(1)}

	zero := cfg()
	zero.EofBehavior = config.EofZero
	res, _ := Execute(prog, []byte{42}, 0, zero, bytes.NewReader(nil), nil)
	if res.Tape[0] != 0 {
		t.Fatalf("zero behavior: got %d", res.Tape[0])
	}

	unchanged := cfg()
	unchanged.EofBehavior = config.EofUnchanged
	res, _ = Execute(prog, []byte{42}, 0, unchanged, bytes.NewReader(nil), nil)
	if res.Tape[0] != 42 {
		t.Fatalf("unchanged behavior: got %d", res.Tape[0])
	}

	maxv := cfg()
	maxv.EofBehavior = config.EofMaxValue
	res, _ = Execute(prog, []byte{42}, 0, maxv, bytes.NewReader(nil), nil)
	if res.Tape[0] != 255 {
		t.Fatalf("max behavior: got %d", res.Tape[0])
	}
}

func TestPointerOverflowMessage(t *testing.T) {
	prog := &bytecode.Program{
		Ops:   []bytecode.Op{bytecode.OpMove(10)},
		Spans: []bytecode.Span{{Start: 5, End: 15, Line: 2, Col: 3}},
	}
	_, err := Execute(prog, make([]byte, 5), 0, cfg(), nil, nil)
	ee, ok := err.(*bferrors.ExecutionError)
	if !ok || ee.Kind != bferrors.PointerOverflow || ee.Pointer != 10 || ee.TapeLen != 5 {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "pointer overflow: position 10 exceeds tape length 5 (at line 2, column 3)"
	if ee.Error() != want {
		t.Fatalf("message = %q, want %q", ee.Error(), want)
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("write failed") }

func TestIoErrorOnWrite(t *testing.T) {
	prog := &bytecode.Program{Ops: []bytecode.Op{bytecode.OpOut()}, Spans: spansN(1)}
	_, err := Execute(prog, []byte{65}, 0, cfg(), nil, failingWriter{})
	ee, ok := err.(*bferrors.ExecutionError)
	if !ok || ee.Kind != bferrors.IoError {
		t.Fatalf("expected IoError, got %v", err)
	}
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("read failed") }

func TestIoErrorOnRead(t *testing.T) {
	prog := &bytecode.Program{Ops: []bytecode.Op{bytecode.OpIn()}, Spans: spansN(1)}
	_, err := Execute(prog, []byte{0}, 0, cfg(), failingReader{}, nil)
	ee, ok := err.(*bferrors.ExecutionError)
	if !ok || ee.Kind != bferrors.IoError {
		t.Fatalf("expected IoError, got %v", err)
	}
}

var _ io.Writer = failingWriter{}
var _ io.Reader = failingReader{}
