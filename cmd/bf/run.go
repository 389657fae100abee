package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"brainfuck"
	"brainfuck/internal/batchserver"
	"brainfuck/internal/config"
	"brainfuck/internal/runid"
	"brainfuck/internal/tracestore"
)

type runArgs struct {
	file         string
	tapeSize     int
	opLimit      int
	hasOpLimit   bool
	eof          string
	inputPath    string
	outputPath   string
	batch        bool
	serve        string
	disasm       bool
	traceDSN     string
	traceBackend string
}

func parseRunArgs(args []string) (*runArgs, error) {
	ra := &runArgs{
		tapeSize:     config.DefaultTapeSize,
		eof:          "unchanged",
		traceBackend: "sqlite",
	}

	i := 0
	next := func(flag string) (string, error) {
		i++
		if i >= len(args) {
			return "", fmt.Errorf("flag %s requires a value", flag)
		}
		return args[i], nil
	}

	for ; i < len(args); i++ {
		a := args[i]
		switch a {
		case "-m", "--memory":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid --memory value %q", v)
			}
			ra.tapeSize = n
		case "-l", "--limit":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, errors.Wrapf(err, "invalid --limit value %q", v)
			}
			ra.opLimit = n
			ra.hasOpLimit = true
		case "-e", "--eof":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			switch v {
			case "zero", "unchanged", "max":
				ra.eof = v
			default:
				return nil, fmt.Errorf("invalid --eof value %q (want zero, unchanged, or max)", v)
			}
		case "-i", "--input":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			ra.inputPath = v
		case "-o", "--output":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			ra.outputPath = v
		case "--batch":
			ra.batch = true
		case "--serve":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			ra.serve = v
		case "--disasm":
			ra.disasm = true
		case "--trace-db":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			ra.traceDSN = v
		case "--trace-backend":
			v, err := next(a)
			if err != nil {
				return nil, err
			}
			ra.traceBackend = v
		default:
			if ra.file == "" && !strings.HasPrefix(a, "-") {
				ra.file = a
			} else {
				return nil, fmt.Errorf("unrecognized argument %q", a)
			}
		}
	}

	if ra.file == "" {
		return nil, fmt.Errorf("no program file provided")
	}
	return ra, nil
}

func runCommand(args []string) error {
	ra, err := parseRunArgs(args)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(ra.file)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("file not found: %s", ra.file)
		}
		return errors.Wrapf(err, "reading %s", ra.file)
	}

	prog, err := brainfuck.Compile(string(source))
	if err != nil {
		return fmt.Errorf("Compile error: %s", err)
	}

	if ra.disasm {
		fmt.Print(prog.Disassemble())
		return nil
	}

	cfg := config.Default()
	cfg.TapeSize = ra.tapeSize
	cfg.EofBehavior = config.ParseEofBehavior(ra.eof)
	if ra.hasOpLimit {
		cfg = cfg.WithOpLimit(ra.opLimit)
	}

	var trace *tracestore.Store
	if ra.traceDSN != "" {
		trace, err = tracestore.Open(context.Background(), tracestore.Backend(ra.traceBackend), ra.traceDSN)
		if err != nil {
			return errors.Wrap(err, "opening trace store")
		}
		defer trace.Close()
	}
	fingerprint := runid.Fingerprint(string(source))

	switch {
	case ra.serve != "":
		cfg.FlushOutput = false
		srv := batchserver.New(prog, cfg, fingerprint, trace, 4)
		diagf(ra, "bf: serving batch protocol on %s\n", ra.serve)
		return http.ListenAndServe(ra.serve, srv)

	case ra.batch:
		cfg.FlushOutput = false
		return runBatch(prog, cfg, trace, fingerprint, os.Stdin, os.Stdout)

	default:
		return runSingle(prog, cfg, ra)
	}
}

func runSingle(prog *brainfuck.Program, cfg brainfuck.Config, ra *runArgs) error {
	var in io.Reader = os.Stdin
	if ra.inputPath != "" {
		f, err := os.Open(ra.inputPath)
		if err != nil {
			return errors.Wrap(err, "opening input file")
		}
		defer f.Close()
		in = f
	}

	var out io.Writer = os.Stdout
	if ra.outputPath != "" {
		f, err := os.Create(ra.outputPath)
		if err != nil {
			return errors.Wrap(err, "creating output file")
		}
		defer f.Close()
		out = f
	}

	result, err := prog.Run(cfg, brainfuck.RunOptions{Input: in, Output: out})
	if err != nil {
		return fmt.Errorf("Runtime error: %s", err)
	}

	diagf(ra, "bf: %s instructions executed\n", humanize.Comma(int64(result.OpsExecuted)))
	return nil
}

// diagf writes a diagnostic line to stderr, colorized only when stderr
// is attached to a real terminal.
func diagf(ra *runArgs, format string, args ...interface{}) {
	if ra.batch || ra.disasm {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if isatty.IsTerminal(os.Stderr.Fd()) {
		msg = "\x1b[2m" + msg + "\x1b[0m"
	}
	fmt.Fprint(os.Stderr, msg)
}
