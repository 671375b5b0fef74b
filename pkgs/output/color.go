package output

import "github.com/fatih/color"

// ColorPrinter prints result lines in green (Okf) or red (Errorf) so join
// and send outcomes stand out in a terminal session; Printf output is not
// coloured.
type ColorPrinter struct{}

var (
	errWord = color.New(color.FgRed, color.Bold)
	okWord  = color.New(color.FgGreen)
)

func (c ColorPrinter) Printf(format string, a ...any) (n int, err error) {
	return color.New().Printf(format, a...)
}

// Errorf prints a failure line in red, used by cli commands that report a
// join or send error back to the operator.
func (c ColorPrinter) Errorf(format string, a ...any) (int, error) {
	return errWord.Printf(format, a...)
}

// Okf prints a success line in green.
func (c ColorPrinter) Okf(format string, a ...any) (int, error) {
	return okWord.Printf(format, a...)
}
