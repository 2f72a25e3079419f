// Package cli holds the interactive prompts and flag helpers of the command.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	log "github.com/sirupsen/logrus"
)

// MultiFlag allows a flag to be specified multiple times.
type MultiFlag []string

func (m *MultiFlag) String() string     { return strings.Join(*m, ",") }
func (m *MultiFlag) Set(v string) error { *m = append(*m, v); return nil }

// KeyValues splits every "key=value" element of m into a map. Later keys
// win.
func (m MultiFlag) KeyValues() (map[string]string, error) {
	out := make(map[string]string, len(m))
	for _, kv := range m {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, errors.Newf("invalid key=value pair: %q", kv)
		}
		out[k] = v
	}
	return out, nil
}

//nolint:gochecknoglobals
var (
	// YesFlag enables automatic yes to prompts.
	YesFlag bool

	reader = bufio.NewReader(os.Stdin)
)

// Must logs a fatal error if err is not nil.
func Must(msg string, err error) {
	if err != nil {
		log.Fatalf("%s: %v", msg, err)
	}
}

// readLine prints prompt and reads one trimmed line. ok is false once stdin
// is exhausted without input.
//
//nolint:forbidigo
func readLine(prompt string) (line string, ok bool) {
	fmt.Print(prompt)
	in, err := reader.ReadString('\n')
	line = strings.TrimSpace(in)
	if err != nil {
		if !errors.Is(err, io.EOF) {
			log.Fatalf("read answer: %v", err)
		}
		fmt.Println()
		return line, line != ""
	}
	return line, true
}

// Ask prompts for input with a default value. Empty input or a closed
// stdin selects the default.
//
//nolint:forbidigo
func Ask(msg, def string) string {
	prompt := fmt.Sprintf("%s [%s]: ", msg, def)
	if YesFlag {
		fmt.Println(prompt + def)
		return def
	}
	if t, _ := readLine(prompt); t != "" {
		return t
	}
	return def
}

// AskRequired prompts until a non-empty answer is given. It is fatal when
// no answer can be read.
func AskRequired(msg string) string {
	if YesFlag {
		log.Fatalf("missing required input for: %s (cannot auto-fill)", msg)
	}
	for {
		t, ok := readLine(msg + ": ")
		if !ok {
			log.Fatalf("no input for: %s", msg)
			return ""
		}
		if t != "" {
			return t
		}
	}
}

// AskYesNo prompts for a yes/no answer. An empty answer selects def; a
// closed stdin is fatal.
//
//nolint:forbidigo
func AskYesNo(msg string, def bool) bool {
	answers := map[bool]string{true: "yes", false: "no"}
	prompt := fmt.Sprintf("%s [%s]: ", msg, answers[def])
	if YesFlag {
		fmt.Println(prompt + answers[def])
		return def
	}
	for {
		in, ok := readLine(prompt)
		if !ok {
			log.Fatalf("no answer for: %s", msg)
			return def
		}
		switch strings.ToLower(in) {
		case "":
			return def
		case "y", "yes":
			return true
		case "n", "no":
			return false
		}
		fmt.Println("Please answer 'yes' or 'no'.")
	}
}
