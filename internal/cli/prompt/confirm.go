// Package prompt asks the user to confirm destructive CLI actions.
package prompt

import (
	"errors"
	"fmt"
	"os"

	"github.com/manifoldco/promptui"
)

var (
	// ErrAborted is returned when the user aborts a prompt (Ctrl+C).
	ErrAborted = errors.New("aborted")

	// ErrNotInteractive is returned when confirmation is needed but stdin
	// is not a terminal.
	ErrNotInteractive = errors.New("confirmation required: stdin is not a terminal (use --force)")
)

// IsAborted returns true if the error indicates the user aborted (Ctrl+C).
func IsAborted(err error) bool {
	return errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, ErrAborted)
}

// Confirm prompts the user for yes/no confirmation on stdin.
// Returns ErrAborted if the user presses Ctrl+C.
func Confirm(label string) (bool, error) {
	p := promptui.Prompt{
		Label:     fmt.Sprintf("%s [y/N]", label),
		IsConfirm: true,
	}

	_, err := p.Run()
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, promptui.ErrInterrupt):
		return false, ErrAborted
	case errors.Is(err, promptui.ErrAbort):
		// "n" or empty input
		return false, nil
	default:
		return false, err
	}
}

// ConfirmWithForce returns true immediately if force is true. Otherwise it
// prompts when stdin is a terminal and fails with ErrNotInteractive when it
// is not.
func ConfirmWithForce(label string, force bool) (bool, error) {
	if force {
		return true, nil
	}
	if !isTerminal(os.Stdin) {
		return false, ErrNotInteractive
	}
	return Confirm(label)
}

func isTerminal(f *os.File) bool {
	fi, err := f.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}
