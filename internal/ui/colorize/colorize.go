// Package colorize highlights assembly listings for the terminal.
package colorize

import (
	"fmt"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/xyproto/env/v2"
)

// EnvNoColor disables highlighting when set to a true value.
const EnvNoColor = "INSNCORPUS_NO_COLOR"

// Enabled reports whether highlighting is on.
func Enabled() bool {
	return !env.Bool(EnvNoColor)
}

// lexerFor returns an assembly lexer for arch. x86 text is AT&T syntax,
// which the GAS lexer understands; the ARM lexers come first for ARM.
func lexerFor(arch string) chroma.Lexer {
	candidates := []string{"gas", "nasm"}
	switch strings.ToLower(arch) {
	case "arm", "aarch64":
		candidates = []string{"armasm", "gas"}
	}
	for _, name := range candidates {
		if lexer := lexers.Get(name); lexer != nil {
			return lexer
		}
	}
	return nil
}

func listingStyle() *chroma.Style {
	for _, name := range []string{"corpus-dark", "dracula", "monokai"} {
		if style := styles.Get(name); style != nil {
			return style
		}
	}
	return styles.Fallback
}

func terminalFormatter() chroma.Formatter {
	for _, name := range []string{"terminal16m", "terminal256"} {
		if formatter := formatters.Get(name); formatter != nil {
			return formatter
		}
	}
	return formatters.Fallback
}

// Assembly highlights code for arch. Code is returned unchanged when
// highlighting is off or no lexer exists.
func Assembly(arch, code string) (string, error) {
	if !Enabled() {
		return code, nil
	}
	lexer := lexerFor(arch)
	if lexer == nil {
		return code, nil
	}
	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}
	var buf strings.Builder
	if err := terminalFormatter().Format(&buf, listingStyle(), iterator); err != nil {
		return code, err
	}
	out := buf.String()
	if !strings.HasSuffix(code, "\n") {
		out = trimNewline(out)
	}
	return out, nil
}

// trimNewline drops a final newline added by lexers that ensure one, even
// when color sequences follow it.
func trimNewline(s string) string {
	i := strings.LastIndexByte(s, '\n')
	if i < 0 || strings.TrimSpace(Strip(s[i+1:])) != "" {
		return s
	}
	return s[:i] + s[i+1:]
}

// Line renders one listing line: offset, raw bytes and text. The offset
// and bytes are gray, the text is highlighted.
func Line(arch string, offset uint64, raw []byte, text string, width int) string {
	hex := fmt.Sprintf("% x", raw)
	if width > 0 && len(hex) < width {
		hex += strings.Repeat(" ", width-len(hex))
	}
	addr := fmt.Sprintf("%04x", offset)
	if !Enabled() {
		return fmt.Sprintf("%s  %s  %s", addr, hex, text)
	}
	colored, err := Assembly(arch, text)
	if err != nil {
		colored = text
	}
	return fmt.Sprintf("\033[38;2;79;79;79m%s  %s\033[0m  %s", addr, hex, colored)
}

// Strip removes ANSI color sequences.
func Strip(s string) string {
	var out strings.Builder
	inEscape := false
	for _, r := range s {
		switch {
		case r == '\x1b':
			inEscape = true
		case inEscape:
			if r == 'm' {
				inEscape = false
			}
		default:
			out.WriteRune(r)
		}
	}
	return out.String()
}
