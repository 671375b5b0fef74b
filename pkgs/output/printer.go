package output

import "fmt"

type Printer interface {
	Printf(format string, a ...any) (n int, err error)
}

// ResultPrinter is an optional extension a Printer may implement to
// highlight a command's outcome. Callers should type-assert for it and
// fall back to plain Printf when a Printer doesn't implement it.
type ResultPrinter interface {
	Errorf(format string, a ...any) (int, error)
	Okf(format string, a ...any) (int, error)
}

type ConsolePrinter struct{}

func (c ConsolePrinter) Printf(format string, a ...any) (n int, err error) {
	return fmt.Printf(format, a...)
}
