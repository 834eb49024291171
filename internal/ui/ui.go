package ui

import (
	"io"

	"github.com/pterm/pterm"
)

// SetDebugEnabled toggles Debug output, driven by the --verbose flag.
func SetDebugEnabled(enabled bool) {
	pterm.PrintDebugMessages = enabled
}

// SetColorEnabled toggles styling, driven by the --no-color flag.
func SetColorEnabled(enabled bool) {
	if enabled {
		pterm.EnableStyling()
	} else {
		pterm.DisableStyling()
	}
}

func SetOutput(w io.Writer) {
	pterm.SetDefaultOutput(w)
}

func Printf(format string, a ...interface{}) {
	pterm.Printf(format, a...)
}

func Printfln(format string, a ...interface{}) {
	pterm.Printfln(format, a...)
}

func Debug(format string, a ...interface{}) {
	pterm.Debug.Printfln(format, a...)
}

func Info(format string, a ...interface{}) {
	pterm.Info.Printfln(format, a...)
}

func Success(format string, a ...interface{}) {
	pterm.Success.Printfln(format, a...)
}

func Warning(format string, a ...interface{}) {
	pterm.Warning.Printfln(format, a...)
}

func Error(format string, a ...interface{}) {
	pterm.Error.Printfln(format, a...)
}

func Fatal(format string, a ...interface{}) {
	pterm.Fatal.Printfln(format, a...)
}
