package emit

import "strings"

// Options controls the layout of emitted units.
type Options struct {
	IndentWidth int  // spaces per level, default 4
	UseTabs     bool // indent with tabs instead of spaces
	// Header is written at the top of generated units.
	Header string
}

const defaultHeader = "// <auto-generated/>"

func (o Options) withDefaults() Options {
	if o.IndentWidth <= 0 {
		o.IndentWidth = 4
	}
	if o.Header == "" {
		o.Header = defaultHeader
	}
	return o
}

// writer accumulates output and indents every line it starts.
type writer struct {
	opt         Options
	buf         []byte
	indentLevel int
	atLineStart bool
}

func newWriter(opt Options) *writer {
	return &writer{opt: opt, buf: make([]byte, 0, 1024), atLineStart: true}
}

func (w *writer) String() string { return string(w.buf) }

func (w *writer) writeIndent() {
	if !w.atLineStart {
		return
	}
	if w.opt.UseTabs {
		for range w.indentLevel {
			w.buf = append(w.buf, '\t')
		}
	} else {
		for range w.indentLevel * w.opt.IndentWidth {
			w.buf = append(w.buf, ' ')
		}
	}
	w.atLineStart = false
}

func (w *writer) WriteString(s string) {
	if s == "" {
		return
	}
	w.writeIndent()
	w.buf = append(w.buf, s...)
	w.atLineStart = s[len(s)-1] == '\n'
}

// Newline ends the current line unless the output already ends with one.
func (w *writer) Newline() {
	if len(w.buf) > 0 && w.buf[len(w.buf)-1] != '\n' {
		w.buf = append(w.buf, '\n')
	}
	w.atLineStart = true
}

// BlankLine separates two blocks with exactly one empty line. It does
// nothing at the start of the output or right after an opening brace.
func (w *writer) BlankLine() {
	w.Newline()
	n := len(w.buf)
	if n == 0 || (n >= 2 && w.buf[n-2] == '\n') {
		return
	}
	if line := lastLine(w.buf[:n-1]); strings.TrimSpace(line) == "{" {
		return
	}
	w.buf = append(w.buf, '\n')
}

// Line writes s on its own line.
func (w *writer) Line(s string) {
	w.Newline()
	w.WriteString(s)
	w.Newline()
}

// Lines writes each line of a multi-line text at the current level.
// Empty lines carry no indentation.
func (w *writer) Lines(text string) {
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" {
			w.Newline()
			w.buf = append(w.buf, '\n')
			continue
		}
		w.Line(line)
	}
}

func (w *writer) IndentPush() { w.indentLevel++ }

func (w *writer) IndentPop() {
	if w.indentLevel > 0 {
		w.indentLevel--
	}
}

// Open writes "{" and indents; Close dedents and writes "}".
func (w *writer) Open() {
	w.Line("{")
	w.IndentPush()
}

func (w *writer) Close() {
	w.IndentPop()
	w.Line("}")
}

func lastLine(b []byte) string {
	i := len(b) - 1
	for i >= 0 && b[i] != '\n' {
		i--
	}
	return string(b[i+1:])
}
