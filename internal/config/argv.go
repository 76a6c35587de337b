package config

import (
	"errors"
	"fmt"
	"unicode"
)

var (
	errOpenQuote  = errors.New("unterminated quote")
	errOpenEscape = errors.New("unterminated escape")
)

// splitCommand turns a clipboard_cmd string into argv. Quotes and backslash
// escapes group words; nothing is expanded. A line starting with '#' is a
// disabled command and yields nil.
func splitCommand(line string) ([]string, error) {
	var (
		argv   []string
		word   []rune
		inWord bool
		quote  rune
	)

	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		r := runes[i]

		if quote != 0 {
			if r == quote {
				quote = 0
			} else {
				word = append(word, r)
			}
			continue
		}

		switch {
		case r == '#' && !inWord && len(argv) == 0:
			return nil, nil
		case r == '\\':
			if i+1 == len(runes) {
				return nil, fmt.Errorf("%w in %q", errOpenEscape, line)
			}
			i++
			word = append(word, runes[i])
			inWord = true
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case unicode.IsSpace(r):
			if inWord {
				argv = append(argv, string(word))
				word, inWord = word[:0], false
			}
		default:
			word = append(word, r)
			inWord = true
		}
	}

	if quote != 0 {
		return nil, fmt.Errorf("%w in %q", errOpenQuote, line)
	}
	if inWord {
		argv = append(argv, string(word))
	}
	return argv, nil
}

func mustSplitCommand(line string) []string {
	argv, err := splitCommand(line)
	if err != nil {
		panic(err)
	}
	return argv
}
