// Package compiler streams Brainfuck source into a compact bytecode
// program: peephole-compacted arithmetic/movement, recognized loop
// idioms (multiplication, scan, clear), and resolved jump targets.
package compiler

import (
	"math"

	"brainfuck/internal/bferrors"
	"brainfuck/internal/bytecode"
)

// Compiler holds the in-progress ops/spans arrays and the stack of
// pending '[' positions while scanning a source string exactly once.
type Compiler struct {
	ops       []bytecode.Op
	spans     []bytecode.Span
	loopStack []loopFrame
}

type loopFrame struct {
	start int
	span  bytecode.Span
}

// Compile compiles source into a bytecode.Program, or returns a
// *bferrors.CompileError if a bracket is unmatched.
func Compile(source string) (*bytecode.Program, error) {
	c := &Compiler{}
	return c.compile(source)
}

func (c *Compiler) compile(source string) (*bytecode.Program, error) {
	src := []byte(source)
	i := 0
	line := 1
	col := 1

	for i < len(src) {
		span := bytecode.Span{Start: i, End: i + 1, Line: line, Col: col}
		switch src[i] {
		case '+':
			c.pushAndCompact(bytecode.OpAdd(1), span)
		case '-':
			c.pushAndCompact(bytecode.OpAdd(255), span)
		case '<':
			c.pushAndCompact(bytecode.OpMove(-1), span)
		case '>':
			c.pushAndCompact(bytecode.OpMove(1), span)
		case '.':
			c.ops = append(c.ops, bytecode.OpOut())
			c.spans = append(c.spans, span)
		case ',':
			c.ops = append(c.ops, bytecode.OpIn())
			c.spans = append(c.spans, span)
		case '[':
			if c.tailIsDead() {
				newI, lines, newCol, closed := skipLoop(src, i+1)
				if !closed {
					return nil, &bferrors.CompileError{Kind: bferrors.UnmatchedOpen, Span: span}
				}
				i = newI
				line += lines
				if lines > 0 {
					col = newCol
				} else {
					col += newCol + 1
				}
				continue
			}
			c.loopStack = append(c.loopStack, loopFrame{start: len(c.ops), span: span})
			c.ops = append(c.ops, bytecode.OpOpen(0))
			c.spans = append(c.spans, span)
		case ']':
			if len(c.loopStack) == 0 {
				return nil, &bferrors.CompileError{Kind: bferrors.UnmatchedClose, Span: span}
			}
			frame := c.loopStack[len(c.loopStack)-1]
			c.loopStack = c.loopStack[:len(c.loopStack)-1]
			loopSpan := bytecode.Span{
				Start: frame.span.Start,
				End:   i + 1,
				Line:  frame.span.Line,
				Col:   frame.span.Col,
			}

			body := c.ops[frame.start+1:]
			if muls, ok := tryMulLoop(body); ok {
				c.ops = c.ops[:frame.start]
				c.spans = c.spans[:frame.start]
				for _, m := range muls {
					c.ops = append(c.ops, bytecode.OpMul(m.offset, m.factor))
					c.spans = append(c.spans, loopSpan)
				}
				c.pushAndCompact(bytecode.OpSet(0), loopSpan)
				i++
				col++
				continue
			}

			if len(c.ops) == frame.start+2 {
				last := c.ops[len(c.ops)-1]
				if last.Kind == bytecode.Move {
					step := last.Offset
					c.ops = c.ops[:len(c.ops)-2]
					c.spans = c.spans[:len(c.spans)-2]
					c.ops = append(c.ops, bytecode.OpScan(step))
					c.spans = append(c.spans, loopSpan)
					i++
					col++
					continue
				}
				if last.Kind == bytecode.Add && last.N%2 == 1 {
					c.ops = c.ops[:len(c.ops)-2]
					c.spans = c.spans[:len(c.spans)-2]
					c.pushAndCompact(bytecode.OpSet(0), loopSpan)
					i++
					col++
					continue
				}
			}

			end := len(c.ops)
			c.ops[frame.start] = bytecode.OpOpen(uint32(end))
			c.ops = append(c.ops, bytecode.OpClose(uint32(frame.start)))
			c.spans = append(c.spans, loopSpan)
		case '\n':
			line++
			col = 0
		}
		i++
		col++
	}

	if len(c.loopStack) > 0 {
		top := c.loopStack[len(c.loopStack)-1]
		return nil, &bferrors.CompileError{Kind: bferrors.UnmatchedOpen, Span: top.span}
	}

	return &bytecode.Program{Ops: c.ops, Spans: c.spans}, nil
}

// tailIsDead reports whether the current cell is provably zero, making
// the loop about to open a dead loop.
func (c *Compiler) tailIsDead() bool {
	if len(c.ops) == 0 {
		return false
	}
	last := c.ops[len(c.ops)-1]
	switch last.Kind {
	case bytecode.Set:
		return last.N == 0
	case bytecode.Close, bytecode.Scan:
		return true
	default:
		return false
	}
}

// skipLoop walks past a dead loop's body without emitting any ops,
// still tracking line/column over the skipped bytes. Returns the index
// just past the matching ']', the number of newlines crossed, the
// column at that point (relative to the last newline crossed, if any),
// and whether the matching ']' was found before the end of source.
func skipLoop(source []byte, start int) (pos, lines, col int, closed bool) {
	depth := 1
	i := start
	for i < len(source) && depth > 0 {
		switch source[i] {
		case '[':
			depth++
		case ']':
			depth--
		case '\n':
			lines++
			col = 0
		}
		col++
		i++
	}
	return i, lines, col, depth == 0
}

type mulPair struct {
	offset int32
	factor uint8
}

// tryMulLoop checks whether a fully-compacted loop body is a linear
// combination loop: only Add/Move, net pointer offset zero, and the
// origin cell decremented by exactly one per iteration (net delta 255).
func tryMulLoop(body []bytecode.Op) ([]mulPair, bool) {
	var offset int32
	var origin uint8
	var muls []mulPair

	for _, op := range body {
		switch op.Kind {
		case bytecode.Add:
			if offset == 0 {
				origin += op.N
			} else {
				muls = append(muls, mulPair{offset: offset, factor: op.N})
			}
		case bytecode.Move:
			offset += op.Offset
		default:
			return nil, false
		}
	}

	if offset == 0 && origin == 255 {
		return muls, true
	}
	return nil, false
}

// pushAndCompact appends op, merging it into the tail of the ops array
// when one of the recognized peephole rules applies.
func (c *Compiler) pushAndCompact(op bytecode.Op, span bytecode.Span) {
	if n := len(c.ops); n > 0 {
		last := &c.ops[n-1]
		lastSpan := &c.spans[n-1]

		switch {
		case last.Kind == bytecode.Add && op.Kind == bytecode.Add:
			sum := last.N + op.N
			if sum == 0 {
				c.ops = c.ops[:n-1]
				c.spans = c.spans[:n-1]
			} else {
				last.N = sum
				lastSpan.End = span.End
			}
			return

		case last.Kind == bytecode.Move && op.Kind == bytecode.Move:
			sum64 := int64(last.Offset) + int64(op.Offset)
			if sum64 < math.MinInt32 || sum64 > math.MaxInt32 {
				c.ops = append(c.ops, op)
				c.spans = append(c.spans, span)
				return
			}
			sum := int32(sum64)
			if sum == 0 {
				c.ops = c.ops[:n-1]
				c.spans = c.spans[:n-1]
			} else {
				last.Offset = sum
				lastSpan.End = span.End
			}
			return

		case last.Kind == bytecode.Set && op.Kind == bytecode.Set:
			last.N = op.N
			lastSpan.End = span.End
			return

		case last.Kind == bytecode.Set && op.Kind == bytecode.Add:
			last.N += op.N
			lastSpan.End = span.End
			return

		case last.Kind == bytecode.Add && op.Kind == bytecode.Set:
			last.Kind = bytecode.Set
			last.N = op.N
			last.Offset = 0
			lastSpan.End = span.End
			return
		}
	}

	c.ops = append(c.ops, op)
	c.spans = append(c.spans, span)
}
