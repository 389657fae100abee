package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble renders a compiled program as one line per instruction,
// prefixed with its index and source line, for --disasm diagnostics.
func Disassemble(prog *Program) string {
	var sb strings.Builder
	for ip, op := range prog.Ops {
		span := Span{}
		if ip < len(prog.Spans) {
			span = prog.Spans[ip]
		}
		fmt.Fprintf(&sb, "%4d  line %-4d  %s\n", ip, span.Line, formatOp(op))
	}
	return sb.String()
}

func formatOp(op Op) string {
	switch op.Kind {
	case Add:
		return fmt.Sprintf("Add(%d)", op.N)
	case Move:
		return fmt.Sprintf("Move(%d)", op.Offset)
	case Set:
		return fmt.Sprintf("Set(%d)", op.N)
	case Mul:
		return fmt.Sprintf("Mul(%d, %d)", op.Offset, op.N)
	case Scan:
		return fmt.Sprintf("Scan(%d)", op.Offset)
	case Open:
		return fmt.Sprintf("Open(%d)", op.Target())
	case Close:
		return fmt.Sprintf("Close(%d)", op.Target())
	case In:
		return "In"
	case Out:
		return "Out"
	default:
		return "???"
	}
}
