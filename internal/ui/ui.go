// Package ui holds the interactive pieces of the CLI: the fzf format
// picker and the operator confirmation shown during login.
// Items reach fzf as plain text on stdin; no preview commands are built
// from remote data.
package ui

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// ErrCancelled is returned when the user backs out of a selection.
var ErrCancelled = errors.New("selection cancelled")

// Select presents items and returns the chosen index. fzf is used when it
// is on PATH, otherwise a numbered list is read from stdin.
func Select(prompt string, items []string) (int, error) {
	if len(items) == 0 {
		return -1, fmt.Errorf("no items to select from")
	}

	fzfPath, err := exec.LookPath("fzf")
	if err != nil {
		return selectNumbered(prompt, items, os.Stdin, os.Stderr)
	}
	return selectFzf(fzfPath, prompt, items)
}

func selectFzf(fzfPath, prompt string, items []string) (int, error) {
	// Index-prefixed lines keep the mapping back to items unambiguous.
	var input strings.Builder
	for i, item := range items {
		fmt.Fprintf(&input, "%d\t%s\n", i, item)
	}

	cmd := exec.Command(fzfPath,
		"--prompt", prompt+" > ",
		"--height", "40%",
		"--reverse",
		"--with-nth", "2..",
		"--delimiter", "\t",
		"--no-multi",
		"--no-sort",
		"--tac",
		"--cycle",
	)
	cmd.Stdin = strings.NewReader(input.String())
	cmd.Stderr = os.Stderr

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 130 {
			return -1, ErrCancelled
		}
		return -1, fmt.Errorf("fzf failed: %w", err)
	}

	idxField, _, _ := strings.Cut(strings.TrimSpace(stdout.String()), "\t")
	if idxField == "" {
		return -1, ErrCancelled
	}
	return parseIndex(idxField, len(items))
}

// selectNumbered is the fallback picker when fzf is unavailable.
func selectNumbered(prompt string, items []string, in io.Reader, out io.Writer) (int, error) {
	for i, item := range items {
		fmt.Fprintf(out, "%3d) %s\n", i+1, item)
	}
	fmt.Fprintf(out, "%s [1-%d]: ", prompt, len(items))

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return -1, ErrCancelled
	}
	line = strings.TrimSpace(line)
	if line == "" {
		return -1, ErrCancelled
	}

	n, err := strconv.Atoi(line)
	if err != nil {
		return -1, fmt.Errorf("parsing selection %q: %w", line, err)
	}
	return parseIndex(strconv.Itoa(n-1), len(items))
}

func parseIndex(field string, n int) (int, error) {
	idx, err := strconv.Atoi(field)
	if err != nil {
		return -1, fmt.Errorf("parsing selection index: %w", err)
	}
	if idx < 0 || idx >= n {
		return -1, fmt.Errorf("selection index %d out of range", idx)
	}
	return idx, nil
}
