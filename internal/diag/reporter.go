package diag

import (
	"fmt"

	"lumen/internal/source"
)

// Reporter is the minimal contract phases use to emit diagnostics.
// Implementations: BagReporter (appends to a Bag), NopReporter.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// Errorf emits an error-level diagnostic through r.
func Errorf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	report(r, code, SevError, primary, format, args...)
}

// Warningf emits a warning-level diagnostic through r.
func Warningf(r Reporter, code Code, primary source.Span, format string, args ...any) {
	report(r, code, SevWarning, primary, format, args...)
}

// Infof emits an info-level diagnostic through r.
func Infof(r Reporter, code Code, primary source.Span, format string, args ...any) {
	report(r, code, SevInfo, primary, format, args...)
}

func report(r Reporter, code Code, sev Severity, primary source.Span, format string, args ...any) {
	if r == nil {
		return
	}
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	r.Report(code, sev, primary, msg, nil)
}

// BagReporter adapts a *Bag to the Reporter interface.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(Diagnostic{
		Severity: sev, Code: code, Message: msg,
		Primary: primary, Notes: notes,
	})
}

// NopReporter drops every diagnostic.
type NopReporter struct{}

func (NopReporter) Report(Code, Severity, source.Span, string, []Note) {}
