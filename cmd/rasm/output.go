package main

import (
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
)

// outWriter wraps the destination file for the assembler's output.
type outWriter struct {
	w    io.Writer
	file *os.File
}

func (o *outWriter) close() {
	if o.file != nil {
		o.file.Close()
	}
}

// outputWriter resolves the --output flag, defaulting to the source
// path with its extension replaced by defaultExt.
func outputWriter(c *cli.Context, source, defaultExt string) (*outWriter, error) {
	path := c.String("output")
	if path == "" {
		path = replaceExt(source, defaultExt)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &outWriter{w: f, file: f}, nil
}

func replaceExt(path, newExt string) string {
	if idx := strings.LastIndex(path, "."); idx >= 0 {
		return path[:idx] + newExt
	}
	return path + newExt
}
