package logger

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// colorEnabled is decided once at startup; piped output stays plain.
var colorEnabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

const (
	ansiReset  = "\033[0m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
)

func paint(code, s string) string {
	if !colorEnabled {
		return s
	}
	return code + s + ansiReset
}

func line(symbol, color, tag, msg string) {
	fmt.Fprintf(os.Stdout, "%s %s %s\n", paint(color, symbol), paint(ansiBold, fmt.Sprintf("%-10s", "["+tag+"]")), msg)
}

// Info logs a neutral progress message under a component tag.
func Info(tag, msg string) { line("•", ansiCyan, tag, msg) }

// Success logs a completed step.
func Success(tag, msg string) { line("✓", ansiGreen, tag, msg) }

// Warn logs a recoverable problem.
func Warn(tag, msg string) { line("!", ansiYellow, tag, msg) }

// Error logs a failure.
func Error(tag, msg string) { line("✗", ansiRed, tag, msg) }

// Banner prints the startup header with the build version.
func Banner(version string) {
	title := "DMM Flipper"
	if version != "" {
		title += " " + version
	}
	bar := strings.Repeat("─", len(title)+4)
	fmt.Fprintf(os.Stdout, "%s\n", paint(ansiCyan, "┌"+bar+"┐"))
	fmt.Fprintf(os.Stdout, "%s  %s  %s\n", paint(ansiCyan, "│"), paint(ansiBold, title), paint(ansiCyan, "│"))
	fmt.Fprintf(os.Stdout, "%s\n", paint(ansiCyan, "└"+bar+"┘"))
}

// Section prints a divider before a group of related log lines.
func Section(name string) {
	fmt.Fprintf(os.Stdout, "\n%s %s\n", paint(ansiDim, "──"), paint(ansiBold, name))
}

// Stats prints an aligned key/value pair for startup and cycle summaries.
func Stats(key string, value interface{}) {
	fmt.Fprintf(os.Stdout, "    %s %v\n", paint(ansiDim, fmt.Sprintf("%-18s", key+":")), value)
}

// Server prints the listen address once the HTTP server is up.
func Server(addr string) {
	fmt.Fprintf(os.Stdout, "\n%s Listening on %s\n\n", paint(ansiGreen, "▶"), paint(ansiBold, "http://"+addr))
}
