package report

import (
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

// highlightDiff renders a unified-diff segment for the terminal: hunk
// headers purple, added lines green, deleted lines red, context lines
// syntax-highlighted by the file's language where a lexer exists.
func highlightDiff(filename, diffText string) string {
	lexer := lexerForFile(filename)
	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}

	var b strings.Builder
	for _, line := range strings.Split(diffText, "\n") {
		switch {
		case strings.HasPrefix(line, "@@"):
			b.WriteString(hunkHeaderStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(addedLineStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(deletedLineStyle.Render(line))
		case strings.HasPrefix(line, " ") && lexer != nil:
			b.WriteString(" " + highlightLine(lexer, style, line[1:]))
		default:
			b.WriteString(dimStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// highlightLine colors one source line, falling back to plain text when
// tokenizing fails.
func highlightLine(lexer chroma.Lexer, style *chroma.Style, line string) string {
	iterator, err := lexer.Tokenise(nil, line)
	if err != nil {
		return line
	}
	var b strings.Builder
	for _, tok := range iterator.Tokens() {
		if color := tokenColor(style, tok.Type); color != "" {
			b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(tok.Value))
		} else {
			b.WriteString(tok.Value)
		}
	}
	return b.String()
}

func lexerForFile(filename string) chroma.Lexer {
	lexer := lexers.Match(filename)
	if lexer == nil {
		ext := filepath.Ext(filename)
		if ext != "" {
			lexer = lexers.Match("file" + ext)
		}
	}
	if lexer != nil {
		lexer = chroma.Coalesce(lexer)
	}
	return lexer
}

func tokenColor(style *chroma.Style, tt chroma.TokenType) string {
	entry := style.Get(tt)
	if entry.Colour.IsSet() {
		return entry.Colour.String()
	}
	return ""
}
