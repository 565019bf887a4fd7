package repl

import (
	"errors"
	"strings"
)

// ErrUnbalancedQuotes is returned for a line with an unterminated quote.
var ErrUnbalancedQuotes = errors.New("unbalanced quotes in request")

// Split breaks a line into arguments. Double-quoted arguments support
// \n \r \t \b \a \\ \" and \xHH escapes; single-quoted arguments only
// support \'. A closing quote must be followed by a space or end of line.
func Split(line string) ([]string, error) {
	var args []string
	i := 0
	for {
		for i < len(line) && isSpace(line[i]) {
			i++
		}
		if i == len(line) {
			return args, nil
		}

		var (
			b   strings.Builder
			err error
		)
		switch line[i] {
		case '"':
			i, err = readDoubleQuoted(line, i+1, &b)
		case '\'':
			i, err = readSingleQuoted(line, i+1, &b)
		default:
			for i < len(line) && !isSpace(line[i]) {
				b.WriteByte(line[i])
				i++
			}
		}
		if err != nil {
			return nil, err
		}
		args = append(args, b.String())
	}
}

func readDoubleQuoted(line string, i int, b *strings.Builder) (int, error) {
	for i < len(line) {
		c := line[i]
		switch {
		case c == '"':
			return closeQuote(line, i+1)
		case c == '\\' && i+3 < len(line) && line[i+1] == 'x' && isHex(line[i+2]) && isHex(line[i+3]):
			b.WriteByte(unhex(line[i+2])<<4 | unhex(line[i+3]))
			i += 4
			continue
		case c == '\\' && i+1 < len(line):
			i++
			switch line[i] {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'a':
				b.WriteByte('\a')
			default:
				b.WriteByte(line[i])
			}
		default:
			b.WriteByte(c)
		}
		i++
	}
	return 0, ErrUnbalancedQuotes
}

func readSingleQuoted(line string, i int, b *strings.Builder) (int, error) {
	for i < len(line) {
		c := line[i]
		switch {
		case c == '\'':
			return closeQuote(line, i+1)
		case c == '\\' && i+1 < len(line) && line[i+1] == '\'':
			b.WriteByte('\'')
			i++
		default:
			b.WriteByte(c)
		}
		i++
	}
	return 0, ErrUnbalancedQuotes
}

func closeQuote(line string, i int) (int, error) {
	if i < len(line) && !isSpace(line[i]) {
		return 0, ErrUnbalancedQuotes
	}
	return i, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case c >= 'a':
		return c - 'a' + 10
	case c >= 'A':
		return c - 'A' + 10
	default:
		return c - '0'
	}
}
