// Command rasm is the assembler driver (spec.md §6): it assembles one
// source file, resolving .include search paths, and writes either the
// encoded executable file, a human-readable summary dump, or nothing.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"robco/asm"
)

func main() {
	app := &cli.App{
		Name:      "rasm",
		Usage:     "assemble a robco-processor source file",
		ArgsUsage: "SOURCE",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "include",
				Aliases: []string{"I"},
				Usage:   "directory to search for .include directives (repeatable)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "output file path (default: SOURCE with the extension replaced by .rex, or by .summary.txt for --type summary)",
			},
			&cli.StringFlag{
				Name:  "type",
				Value: "binary",
				Usage: "output type: binary, summary, or none",
			},
		},
		Action: runAssemble,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "rasm:", err)
		os.Exit(1)
	}
}

func runAssemble(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("expected exactly one source file argument", 1)
	}
	source := c.Args().Get(0)

	outputType := c.String("type")
	if outputType != "binary" && outputType != "summary" && outputType != "none" {
		return cli.Exit(fmt.Sprintf("invalid --type %q: want binary, summary, or none", outputType), 1)
	}

	a := asm.New()
	a.IncludeDirs = c.StringSlice("include")
	a.AssembleFile(source)

	f, err := a.Finalize()

	for _, e := range a.Errors() {
		fmt.Fprintln(os.Stderr, e)
	}

	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	switch outputType {
	case "none":
		return nil
	case "summary":
		out, err := outputWriter(c, source, ".summary.txt")
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer out.close()
		a.WriteSummary(out.w)
		return nil
	default:
		encoded, err := f.Encode()
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		out, err := outputWriter(c, source, ".rex")
		if err != nil {
			return cli.Exit(err.Error(), 1)
		}
		defer out.close()
		if _, err := out.w.Write(encoded); err != nil {
			return cli.Exit(err.Error(), 1)
		}
		return nil
	}
}
