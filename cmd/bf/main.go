// Command bf compiles and runs Brainfuck programs: a single file at a
// time, a newline-JSON batch on stdin/stdout, or a WebSocket batch
// server, with an optional SQL-backed run ledger.
package main

import (
	"fmt"
	"os"
)

const version = "1.0.0"

var commandAliases = map[string]string{
	"r": "run",
}

func main() {
	args := os.Args[1:]
	if len(args) == 0 {
		showUsage()
		os.Exit(1)
	}

	cmd := args[0]
	if alias, ok := commandAliases[cmd]; ok {
		cmd = alias
	}

	switch cmd {
	case "--help", "-h", "help":
		showUsage()
	case "--version", "-v", "version":
		fmt.Printf("bf %s\n", version)
	case "run":
		if err := runCommand(args[1:]); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", args[0])
		showUsage()
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println("bf - a Brainfuck compiler and bytecode interpreter")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  bf run <file> [flags]     Compile and run a program   (alias: r)")
	fmt.Println()
	fmt.Println("Flags:")
	fmt.Println("  -m, --memory N      tape size in bytes (default 30000)")
	fmt.Println("  -l, --limit N       max instructions executed (default unlimited)")
	fmt.Println("  -e, --eof MODE      EOF behavior: zero, unchanged, max (default unchanged)")
	fmt.Println("  -i, --input PATH    read program input from PATH instead of stdin")
	fmt.Println("  -o, --output PATH   write program output to PATH instead of stdout")
	fmt.Println("      --batch         read newline-JSON batch requests from stdin")
	fmt.Println("      --serve ADDR    serve the batch protocol over WebSocket at ADDR")
	fmt.Println("      --disasm        print the compiled instruction stream and exit")
	fmt.Println("      --trace-db DSN  record --batch and --serve runs in a SQL run ledger (single runs are not recorded)")
	fmt.Println("      --trace-backend sqlite|sqlite3|postgres|mysql|sqlserver (default sqlite)")
}
