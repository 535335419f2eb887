/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: output.go
Description: Terminal output helpers shared by the commands: colours for results and a
progress spinner that stays off when stderr is not a terminal.
*/

package commands

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow)
	infoColor    = color.New(color.FgCyan)
	headerColor  = color.New(color.FgBlue, color.Bold)
)

// newSpinner starts a spinner on stderr, or returns nil when stderr is not a terminal
func newSpinner(suffix string) *spinner.Spinner {
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		return nil
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	s.Suffix = suffix
	s.Start()
	return s
}

// acceptedLabel colours a membership decision
func acceptedLabel(ok bool) string {
	if ok {
		return successColor.Sprint("ACCEPT")
	}
	return errorColor.Sprint("REJECT")
}
