package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"worldip/internal/config"
	"worldip/internal/fingerprint"
	"worldip/internal/services"
)

// inputFlags selects the content a command fingerprints: a FILE argument
// ("-" for stdin), inline --text, or a --text-file decoded with
// --text-encoding.
type inputFlags struct {
	text         string
	textFile     string
	textEncoding string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.text, "text", "", "Fingerprint this text instead of a file")
	cmd.Flags().StringVar(&f.textFile, "text-file", "", "Fingerprint the decoded contents of a text file")
	cmd.Flags().StringVar(&f.textEncoding, "text-encoding", "utf-8", "Encoding of --text-file ("+strings.Join(fingerprint.TextEncodings, ", ")+")")
}

// resolve builds the input from the flags and an optional FILE argument.
// The returned input must be closed by the caller.
func (f *inputFlags) resolve(cmd *cobra.Command, fileArg string) (fingerprint.Input, error) {
	textSet := cmd.Flags().Changed("text")
	textFileSet := strings.TrimSpace(f.textFile) != ""
	fileSet := strings.TrimSpace(fileArg) != ""

	sources := 0
	for _, set := range []bool{textSet, textFileSet, fileSet} {
		if set {
			sources++
		}
	}
	switch {
	case sources == 0:
		return fingerprint.Input{}, usageErrorf("provide a FILE, --text or --text-file")
	case sources > 1:
		return fingerprint.Input{}, usageErrorf("FILE, --text and --text-file are mutually exclusive")
	}
	if cmd.Flags().Changed("text-encoding") && !textFileSet {
		return fingerprint.Input{}, usageErrorf("--text-encoding applies only to --text-file")
	}

	switch {
	case textSet:
		return fingerprint.Text(f.text), nil
	case textFileSet:
		path, err := config.ExpandPath(f.textFile)
		if err != nil {
			return fingerprint.Input{}, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fingerprint.Input{}, fmt.Errorf("%w: read %s: %w", fingerprint.ErrIO, path, err)
		}
		text, err := fingerprint.DecodeText(data, f.textEncoding)
		if err != nil {
			return fingerprint.Input{}, err
		}
		return fingerprint.Text(text), nil
	case fileArg == "-":
		return stdinInput(cmd.InOrStdin())
	default:
		path, err := config.ExpandPath(fileArg)
		if err != nil {
			return fingerprint.Input{}, services.Wrap(services.ErrValidation, "input", "resolve path", fileArg, err)
		}
		return fingerprint.Open(path)
	}
}

// stdinInput spools standard input to a temporary file, since its length is
// unknown up front and it may be larger than memory.
func stdinInput(r io.Reader) (fingerprint.Input, error) {
	return fingerprint.Spool("stdin", r)
}
