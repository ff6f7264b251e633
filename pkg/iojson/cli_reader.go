package iojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

type FileReader[T any] struct {
	fileFlagValue string
	stdin         io.Reader
}

func (fr *FileReader[T]) Flag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:        "file",
		Aliases:     []string{"f"},
		Usage:       "path to JSON file (reads from stdin if not provided)",
		Destination: &fr.fileFlagValue,
	}
}

func (fr *FileReader[T]) Read() (T, error) {
	input, ok, err := fr.ReadOptional()
	if err == nil && !ok {
		return input, fmt.Errorf("no input provided (stdin is a terminal); use -f flag or pipe JSON input")
	}
	return input, err
}

// ReadOptional is Read for commands where the JSON input may be omitted. It
// reports false when no file was given and stdin is a terminal or empty.
func (fr *FileReader[T]) ReadOptional() (T, bool, error) {
	var reader io.Reader
	var input T

	switch {
	case fr.fileFlagValue != "":
		f, err := os.Open(fr.fileFlagValue)
		if err != nil {
			return input, false, fmt.Errorf("open file: %w", err)
		}
		defer func() { _ = f.Close() }()
		reader = f
	case fr.stdin != nil:
		reader = fr.stdin
	default:
		if term.IsTerminal(int(os.Stdin.Fd())) {
			return input, false, nil
		}
		reader = os.Stdin
	}

	if err := json.NewDecoder(reader).Decode(&input); err != nil {
		if errors.Is(err, io.EOF) && fr.fileFlagValue == "" {
			return input, false, nil
		}
		return input, false, fmt.Errorf("decode JSON: %w", err)
	}

	return input, true, nil
}
