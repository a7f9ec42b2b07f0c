package cli

import (
	"fmt"
	"strconv"

	"github.com/emenda-labs/prmerge/core/request"
)

// UsageError reports missing or malformed command-line arguments.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string {
	return e.Msg
}

// ParseArgs validates the positional arguments: either PR-NUMBER alone or
// REPO-NAME followed by PR-NUMBER.
func ParseArgs(args []string) (repo string, number int, err error) {
	switch len(args) {
	case 0:
		return "", 0, &UsageError{Msg: "missing PR-NUMBER"}
	case 1:
		number, err = parseNumber(args[0])
		return "", number, err
	case 2:
		if _, err := request.ParseRepo(args[0]); err != nil {
			return "", 0, &UsageError{Msg: err.Error()}
		}
		number, err = parseNumber(args[1])
		if err != nil {
			return "", 0, err
		}
		return args[0], number, nil
	default:
		return "", 0, &UsageError{Msg: fmt.Sprintf("too many arguments: got %d, want at most 2", len(args))}
	}
}

func parseNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, &UsageError{Msg: fmt.Sprintf("invalid PR-NUMBER %q: must be a positive integer", s)}
	}
	return n, nil
}
