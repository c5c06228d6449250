// minbin - MINBIN codec CLI tool
//
// Usage:
//
//	minbin encode --shape SHAPE [file]   Encode JSON as MINBIN bytes
//	minbin decode --shape SHAPE [file]   Decode MINBIN bytes to JSON
//	minbin shape SHAPE                   Validate a shape, print canonical form
//	minbin inspect [file]                Hex dump with offsets
//	minbin version                       Print version info
//
// The shape language describes the expected layout, e.g.
//
//	struct(id:u32 name:str tags:opt(seq(bool)))
//
// If no file is given, input is read from stdin. Encoded output goes to
// stdout (redirect it) or to --out.
package main

import (
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/Neumenon/minbin/minbin"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "encode":
		cmdEncode(os.Args[2:])
	case "decode":
		cmdDecode(os.Args[2:])
	case "shape":
		cmdShape(os.Args[2:])
	case "inspect":
		cmdInspect(os.Args[2:])
	case "version":
		fmt.Printf("minbin %s\n", version)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "minbin: unknown command %q\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `minbin - compact binary codec tool

Usage:
  minbin encode --shape SHAPE [file]   Encode JSON as MINBIN bytes
  minbin decode --shape SHAPE [file]   Decode MINBIN bytes to JSON
  minbin shape SHAPE                   Validate a shape, print canonical form
  minbin inspect [file]                Hex dump with offsets
  minbin version                       Print version info

If no file is given, input is read from stdin.`)
}

func cmdEncode(args []string) {
	fs := flag.NewFlagSet("encode", flag.ExitOnError)
	shapeSrc := fs.StringP("shape", "s", "", "shape of the value (required)")
	out := fs.StringP("out", "o", "", "output file (default stdout)")
	_ = fs.Parse(args)

	shape := mustShape(*shapeSrc)
	input := readInput(fs.Args())

	v, err := minbin.ValueFromJSON(input, shape)
	if err != nil {
		fatal("%v", err)
	}
	encoded, err := minbin.Encode(shape, v)
	if err != nil {
		fatal("encode: %v", err)
	}
	writeOutput(*out, encoded)
	fmt.Fprintf(os.Stderr, "%d JSON bytes -> %d MINBIN bytes\n", len(input), len(encoded))
}

func cmdDecode(args []string) {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	shapeSrc := fs.StringP("shape", "s", "", "shape of the value (required)")
	out := fs.StringP("out", "o", "", "output file (default stdout)")
	_ = fs.Parse(args)

	shape := mustShape(*shapeSrc)
	input := readInput(fs.Args())

	v, err := minbin.Decode(input, shape)
	if err != nil {
		fatal("%v", err)
	}
	rendered, err := minbin.ValueToJSON(v, shape)
	if err != nil {
		fatal("%v", err)
	}
	writeOutput(*out, append(rendered, '\n'))
}

func cmdShape(args []string) {
	if len(args) != 1 {
		fatal("shape: want exactly one SHAPE argument")
	}
	s, err := minbin.ParseShape(args[0])
	if err != nil {
		fatal("%v", err)
	}
	fmt.Println(s)
}

func cmdInspect(args []string) {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	_ = fs.Parse(args)

	input := readInput(fs.Args())
	for off := 0; off < len(input); off += 16 {
		end := off + 16
		if end > len(input) {
			end = len(input)
		}
		line := input[off:end]

		fmt.Printf("%08x  ", off)
		for i := 0; i < 16; i++ {
			if i == 8 {
				fmt.Print(" ")
			}
			if i < len(line) {
				fmt.Printf("%02x ", line[i])
			} else {
				fmt.Print("   ")
			}
		}
		fmt.Print(" |")
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				fmt.Printf("%c", b)
			} else {
				fmt.Print(".")
			}
		}
		fmt.Println("|")
	}
	fmt.Printf("%08x\n", len(input))
}

func mustShape(src string) *minbin.Shape {
	if src == "" {
		fatal("--shape is required")
	}
	s, err := minbin.ParseShape(src)
	if err != nil {
		fatal("%v", err)
	}
	return s
}

func readInput(args []string) []byte {
	var r io.Reader = os.Stdin
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			fatal("open: %v", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		fatal("read: %v", err)
	}
	return data
}

func writeOutput(path string, data []byte) {
	if path == "" || path == "-" {
		if _, err := os.Stdout.Write(data); err != nil {
			fatal("write: %v", err)
		}
		return
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		fatal("write: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "minbin: "+format+"\n", args...)
	os.Exit(1)
}
