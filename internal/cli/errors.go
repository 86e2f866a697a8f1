package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/odysseus0/feedmd/internal/markdown"
	"github.com/odysseus0/feedmd/internal/store"
)

const (
	exitInvalidInput = 2
	exitNotFound     = 3
	exitInternal     = 1
)

type errorKind string

const (
	kindInvalidInput errorKind = "invalid-input"
	kindNotFound     errorKind = "not-found"
	kindInternal     errorKind = "internal"
)

func classifyError(err error) errorKind {
	var parseErr *markdown.ParseError
	switch {
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, markdown.ErrMissingBody),
		errors.As(err, &parseErr):
		return kindInvalidInput
	case errors.Is(err, store.ErrNotFound):
		return kindNotFound
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "invalid id") || strings.Contains(msg, "invalid output format") {
		return kindInvalidInput
	}
	return kindInternal
}

func ErrorExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch classifyError(err) {
	case kindInvalidInput:
		return exitInvalidInput
	case kindNotFound:
		return exitNotFound
	}
	return exitInternal
}

func FormatError(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error [%s]: %v", classifyError(err), err)
}

func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, FormatError(err))
}
