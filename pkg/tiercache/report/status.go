package report

import (
	"fmt"
	"io"
)

// Status line markers.
const (
	markStep    = "▸"
	markSuccess = "✓"
	markWarning = "!"
	markError   = "✗"
)

// Printer writes one-line progress and status messages.
type Printer struct {
	w io.Writer
}

// NewPrinter returns a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Step announces a stage.
func (p *Printer) Step(format string, args ...interface{}) {
	p.line(TitleStyle.Render(markStep), ValueStyle.Render(fmt.Sprintf(format, args...)))
}

// Success reports a completed action.
func (p *Printer) Success(format string, args ...interface{}) {
	p.line(SuccessStyle.Render(markSuccess), fmt.Sprintf(format, args...))
}

// Warn reports an advisory failure. The run continues.
func (p *Printer) Warn(format string, args ...interface{}) {
	p.line(WarningStyle.Render(markWarning), WarningStyle.Render(fmt.Sprintf(format, args...)))
}

// Error reports a failure.
func (p *Printer) Error(format string, args ...interface{}) {
	p.line(ErrorStyle.Render(markError), ErrorStyle.Render(fmt.Sprintf(format, args...)))
}

// Fatal prints err in the error box.
func (p *Printer) Fatal(err error) {
	_, _ = fmt.Fprintln(p.w, ErrorBox.Render(ErrorStyle.Render("Error: ")+err.Error()))
}

func (p *Printer) line(mark, msg string) {
	_, _ = fmt.Fprintf(p.w, "%s %s\n", mark, msg)
}
