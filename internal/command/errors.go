package command

import (
	"errors"
	"fmt"
	"strings"
	"syscall"

	"github.com/adamavenir/socialdash/internal/api"
	"github.com/spf13/cobra"
)

// errNotLoggedIn is returned when a command needs stored credentials.
var errNotLoggedIn = errors.New("not logged in")

func writeCommandError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", err.Error())

	switch {
	case errors.Is(err, errNotLoggedIn), errors.Is(err, api.ErrUnauthorized):
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: run %s login\n", AppName)
	case errors.Is(err, syscall.ECONNREFUSED):
		fmt.Fprintln(cmd.ErrOrStderr(), "Hint: is the backend running? Check SOCIALDASH_API_URL")
	case isSchemaError(err):
		fmt.Fprintf(cmd.ErrOrStderr(), "Hint: the offline cache looks outdated. Try: %s logout\n", AppName)
	}

	return reportedError{err}
}

// reportedError marks errors that were already printed to the user.
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error {
	return e.error
}

// isSchemaError checks if an error is a SQLite schema mismatch.
func isSchemaError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "no such column") ||
		strings.Contains(msg, "no such table") ||
		strings.Contains(msg, "has no column")
}
