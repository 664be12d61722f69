package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/antoto2021/nexus/internal/agent"
	"github.com/antoto2021/nexus/internal/keys"
	"github.com/antoto2021/nexus/internal/provider"
	"github.com/antoto2021/nexus/internal/router"
	xstrings "github.com/charmbracelet/x/exp/strings"
)

// newUserErrorf is a user-facing error.
// this function is mostly to avoid linters complain about errors starting with a capitalized letter.
func newUserErrorf(format string, a ...any) error {
	return fmt.Errorf(format, a...)
}

// nexusError is a wrapper around an error that adds additional context.
type nexusError struct {
	err    error
	reason string
}

func (m nexusError) Error() string {
	return m.err.Error()
}

func (m nexusError) Unwrap() error {
	return m.err
}

func (m nexusError) Reason() string {
	return m.reason
}

// explain wraps the errors of the assistant with a reason the user can act on.
func explain(err error) error {
	var nerr nexusError
	if err == nil || errors.As(err, &nerr) {
		return err
	}
	var exhausted *router.ExhaustedError
	switch {
	case errors.Is(err, keys.ErrNoKey), errors.Is(err, agent.ErrNotConfigured):
		return nexusError{err, fmt.Sprintf(
			"No API key configured. Run %s or set %s.",
			stderrStyles().InlineCode.Render("nexus key set"),
			orList(keys.EnvVars...),
		)}
	case provider.IsAuth(err):
		return nexusError{err, "The Gemini API rejected your key."}
	case errors.Is(err, router.ErrNoWorkingModel):
		return nexusError{err, "None of the models answered the test prompt."}
	case errors.Is(err, router.ErrNoModels):
		return nexusError{err, "No model to try. Configure fallback-models or run a scan."}
	case errors.As(err, &exhausted):
		return nexusError{err, fmt.Sprintf("All %d models failed to answer.", len(exhausted.Attempts))}
	case errors.Is(err, agent.ErrEmptyPrompt):
		return nexusError{err, "The prompt is empty."}
	}
	return err
}

// orList joins words the way a sentence would: "a, b, or c".
func orList(words ...string) string {
	if len(words) < 2 { //nolint:mnd
		return strings.Join(words, "")
	}
	return strings.Replace(xstrings.EnglishJoin(words, true), " and ", " or ", 1)
}

func handleError(err error) {
	// exhaust stdin
	if !isInputTTY() {
		_, _ = io.ReadAll(os.Stdin)
	}

	format := "\n%s\n\n"

	var args []any
	var ferr flagParseError
	var merr nexusError
	if errors.As(err, &ferr) {
		format += "%s\n\n"
		args = []any{
			fmt.Sprintf(
				"Check out %s %s",
				stderrStyles().InlineCode.Render("nexus -h"),
				stderrStyles().Comment.Render("for help."),
			),
			fmt.Sprintf(
				ferr.ReasonFormat(),
				stderrStyles().InlineCode.Render(ferr.Flag()),
			),
		}
	} else if errors.As(err, &merr) {
		format += "%s\n\n"
		args = []any{
			stderrStyles().ErrPadding.Render(stderrStyles().ErrorHeader.String(), merr.reason),
			stderrStyles().ErrPadding.Render(stderrStyles().ErrorDetails.Render(err.Error())),
		}
	} else {
		args = []any{
			stderrStyles().ErrPadding.Render(stderrStyles().ErrorDetails.Render(err.Error())),
		}
	}

	fmt.Fprintf(os.Stderr, format, args...)
}

func newFlagParseError(err error) flagParseError {
	var reason, flag string
	s := err.Error()
	switch {
	case strings.HasPrefix(s, "flag needs an argument:"):
		reason = "Flag %s needs an argument."
		ps := strings.Split(s, "-")
		switch len(ps) {
		case 2: //nolint:mnd
			flag = "-" + ps[len(ps)-1]
		case 3: //nolint:mnd
			flag = "--" + ps[len(ps)-1]
		}
	case strings.HasPrefix(s, "unknown flag:"):
		reason = "Flag %s is missing."
		flag = strings.TrimPrefix(s, "unknown flag: ")
	case strings.HasPrefix(s, "unknown shorthand flag:"):
		reason = "Short flag %s is missing."
		if parts := shorthandRe.FindStringSubmatch(s); len(parts) > 1 {
			flag = parts[1]
		}
	case strings.HasPrefix(s, "invalid argument"):
		reason = "Flag %s have an invalid argument."
		if parts := invalidArgRe.FindStringSubmatch(s); len(parts) > 1 {
			flag = parts[1]
		}
	default:
		reason = s
	}
	return flagParseError{
		err:    err,
		reason: reason,
		flag:   flag,
	}
}

var (
	shorthandRe  = regexp.MustCompile(`unknown shorthand flag: '.*' in (-\w)`)
	invalidArgRe = regexp.MustCompile(`invalid argument ".*" for "(.*)" flag: .*`)
)

type flagParseError struct {
	err    error
	reason string
	flag   string
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) ReasonFormat() string {
	return f.reason
}

func (f flagParseError) Flag() string {
	return f.flag
}
