// ABOUTME: Log output setup for CLI commands
// ABOUTME: Sends the standard logger to a file, a console writer, both or nowhere
package main

import (
	"fmt"
	"io"
	"log"
	"os"
)

// setupLogging points the standard logger at path and console. Either may
// be empty/nil. The returned func closes the log file.
func setupLogging(path string, console io.Writer) (func(), error) {
	var writers []io.Writer
	closeFn := func() {}

	if path != "" {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o666)
		if err != nil {
			return nil, fmt.Errorf("error opening log file: %w", err)
		}
		writers = append(writers, f)
		closeFn = func() { _ = f.Close() }
	}
	if console != nil {
		writers = append(writers, console)
	}

	switch len(writers) {
	case 0:
		log.SetOutput(io.Discard)
	case 1:
		log.SetOutput(writers[0])
	default:
		log.SetOutput(io.MultiWriter(writers...))
	}
	return closeFn, nil
}
