// ABOUTME: Shared result rows for decode and submit output
// ABOUTME: Turns buffers and errors into table rows
package main

import (
	"fmt"
	"io"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Resonate-Protocol/resonate-decode/pkg/audio"
	"github.com/Resonate-Protocol/resonate-decode/pkg/audio/decode"
)

// outcome is one input's decode result
type outcome struct {
	Input string
	Name  string
	Buf   *audio.Buffer
	Err   error
}

var resultHeaders = []string{"Input", "Channels", "Frames", "Rate", "Duration", "Codec", "Status"}
var resultAligns = []columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft, alignLeft}

func (o outcome) row() []string {
	if o.Err != nil {
		return []string{o.Input, "-", "-", "-", "-", "-", "error: " + o.Err.Error()}
	}
	codec := o.Buf.Meta.Codec
	if codec == "" {
		codec = "-"
	}
	return []string{
		o.Input,
		fmt.Sprintf("%d", o.Buf.NumChannels()),
		fmt.Sprintf("%d", o.Buf.Frames()),
		fmt.Sprintf("%d Hz", o.Buf.SampleRate),
		o.Buf.Duration().Round(time.Millisecond).String(),
		codec,
		"ok",
	}
}

// writeOutcomes renders outcomes and returns an error if any failed
func writeOutcomes(w io.Writer, outcomes []outcome) error {
	rows := make([][]string, 0, len(outcomes))
	failed := 0
	for _, o := range outcomes {
		rows = append(rows, o.row())
		if o.Err != nil {
			failed++
		}
	}

	fmt.Fprintln(w, renderTable(resultHeaders, rows, resultAligns))

	if failed > 0 {
		return fmt.Errorf("%d of %d decodes failed", failed, len(outcomes))
	}
	return nil
}

// isURL reports whether arg is an http(s) or file URL rather than a path
func isURL(arg string) bool {
	u, err := url.Parse(arg)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "file":
		return true
	}
	return false
}

// inputName derives the staging name for an input. Names that collide with
// decoder channel blobs are prefixed with "input_".
func inputName(arg string) string {
	name := "input"
	if isURL(arg) {
		if u, err := url.Parse(arg); err == nil && u.Path != "" {
			if base := path.Base(u.Path); base != "/" && base != "." {
				name = base
			}
		}
	} else {
		name = filepath.Base(arg)
	}

	if strings.HasPrefix(name, decode.ChannelPrefix) {
		return "input_" + name
	}
	return name
}
