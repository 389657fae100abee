package bytecode

// Kind tags the variant a Op holds.
type Kind uint8

const (
	Add Kind = iota
	Move
	Set
	Mul
	Scan
	Open
	Close
	In
	Out
)

func (k Kind) String() string {
	switch k {
	case Add:
		return "Add"
	case Move:
		return "Move"
	case Set:
		return "Set"
	case Mul:
		return "Mul"
	case Scan:
		return "Scan"
	case Open:
		return "Open"
	case Close:
		return "Close"
	case In:
		return "In"
	case Out:
		return "Out"
	default:
		return "Unknown"
	}
}

// Op is a single bytecode instruction. Payload fields are interpreted
// according to Kind:
//
//	Add(N)        N is the wrapping 8-bit amount to add.
//	Move(Offset)  Offset is the signed delta applied to the data pointer.
//	Set(N)        N overwrites the current cell.
//	Mul(Offset,N) tape[ptr+Offset] += tape[ptr] * N.
//	Scan(Offset)  advance by Offset (nonzero) until a zero cell is found.
//	Open(Target)  jump to Target if the current cell is zero.
//	Close(Target) jump to Target if the current cell is nonzero.
//	In, Out       no payload.
type Op struct {
	Kind   Kind
	N      uint8
	Offset int32
}

func OpAdd(n uint8) Op               { return Op{Kind: Add, N: n} }
func OpMove(d int32) Op              { return Op{Kind: Move, Offset: d} }
func OpSet(n uint8) Op               { return Op{Kind: Set, N: n} }
func OpMul(offset int32, f uint8) Op { return Op{Kind: Mul, Offset: offset, N: f} }
func OpScan(stride int32) Op         { return Op{Kind: Scan, Offset: stride} }
func OpOpen(target uint32) Op        { return Op{Kind: Open, Offset: int32(target)} }
func OpClose(target uint32) Op       { return Op{Kind: Close, Offset: int32(target)} }
func OpIn() Op                       { return Op{Kind: In} }
func OpOut() Op                      { return Op{Kind: Out} }

// Target reads the Open/Close jump destination as an instruction index.
func (o Op) Target() int { return int(uint32(o.Offset)) }
