package shell

import (
	"errors"
	"strings"

	"github.com/buildkite/shellwords"
)

// ErrBareAmpersand is returned for a line holding only "&".
var ErrBareAmpersand = errors.New("syntax error near unexpected token `&'")

// Tokenize splits line into argv. A trailing unescaped "&", either as its
// own word or glued to the last one, requests background execution and is
// removed from argv. An empty or blank line yields a nil argv.
func Tokenize(line string) ([]string, bool, error) {
	words, err := shellwords.Split(line)
	if err != nil {
		return nil, false, err
	}
	if len(words) == 0 {
		return nil, false, nil
	}

	trimmed := strings.TrimRight(line, " \t\r\n")
	background := strings.HasSuffix(trimmed, "&") && !strings.HasSuffix(trimmed, `\&`)
	if !background {
		return words, false, nil
	}

	last := len(words) - 1
	if words[last] == "&" {
		words = words[:last]
	} else {
		words[last] = strings.TrimSuffix(words[last], "&")
	}
	if len(words) == 0 {
		return nil, true, ErrBareAmpersand
	}
	return words, true, nil
}
