package main

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"golang.org/x/term"
)

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// readPassword reads a password without echoing.
func readPassword(field string) (string, error) {
	if !isInteractive() {
		return "", &userError{msg: "cannot prompt for " + field + ": stdin is not a terminal",
			hint: "set ssh-password in the node file or with --set"}
	}
	fmt.Printf("  %s: ", field)
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", field, err)
	}
	return string(pw), nil
}

func confirm(msg string, defaultYes bool) bool {
	ok := defaultYes
	if err := survey.AskOne(&survey.Confirm{Message: msg, Default: defaultYes}, &ok); err != nil {
		return false
	}
	return ok
}

// selectOne returns the chosen option, or "" when the prompt is aborted.
func selectOne(msg string, options []string) string {
	var choice string
	if err := survey.AskOne(&survey.Select{Message: msg, Options: options, PageSize: 15}, &choice); err != nil {
		return ""
	}
	return choice
}
