// Package message prints user-facing run output. Logs go through slog;
// this is what an operator reads at the end of an import.
package message

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fatih/color"
	"github.com/praetorian-inc/asea-lza/version"
)

var (
	quiet     bool
	noColor   bool
	mutex     sync.RWMutex
	outWriter io.Writer = os.Stdout

	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgGreen)
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	sectionColor = color.New(color.FgHiMagenta, color.Bold)
	countColor   = color.New(color.Bold)
)

// SetQuiet suppresses everything but warnings and errors.
func SetQuiet(q bool) {
	mutex.Lock()
	defer mutex.Unlock()
	quiet = q
}

func SetNoColor(nc bool) {
	mutex.Lock()
	defer mutex.Unlock()
	noColor = nc
	color.NoColor = nc
}

// SetOutput changes the writer, for tests.
func SetOutput(w io.Writer) {
	mutex.Lock()
	defer mutex.Unlock()
	outWriter = w
}

func printf(c *color.Color, prefix, format string, args ...interface{}) {
	mutex.RLock()
	defer mutex.RUnlock()

	msg := fmt.Sprintf(format, args...)
	if noColor {
		fmt.Fprintf(outWriter, "%s%s\n", prefix, msg)
		return
	}
	c.Fprintf(outWriter, "%s%s\n", prefix, msg)
}

func isQuiet() bool {
	mutex.RLock()
	defer mutex.RUnlock()
	return quiet
}

func Info(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	printf(infoColor, "[*] ", format, args...)
}

func Success(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	printf(successColor, "[+] ", format, args...)
}

func Warning(format string, args ...interface{}) {
	printf(warningColor, "[!] ", format, args...)
}

func Error(format string, args ...interface{}) {
	printf(errorColor, "[-] ", format, args...)
}

// Section prints a header.
func Section(format string, args ...interface{}) {
	if isQuiet() {
		return
	}
	printf(sectionColor, "", "\n-=["+format+"]=-\n", args...)
}

// Count prints one line of a run summary.
func Count(label string, n int) {
	if isQuiet() {
		return
	}
	mutex.RLock()
	defer mutex.RUnlock()

	if noColor {
		fmt.Fprintf(outWriter, "    %-24s %d\n", label, n)
		return
	}
	fmt.Fprintf(outWriter, "    %-24s %s\n", label, countColor.Sprint(n))
}

// Banner prints the tool name and version.
func Banner() {
	if isQuiet() {
		return
	}
	printf(sectionColor, "", "asea-lza %s", version.AbbreviatedVersion())
}
