// Package parser converts raw command arguments into core events.
// Bad numeric fields degrade to defaults; missing arguments and empty
// identities are errors.
package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/campusar/wayfinder/internal/util"
	"github.com/campusar/wayfinder/pkg/core"
)

var (
	// ErrTooFewArgs is returned when a command carries fewer arguments than it needs.
	ErrTooFewArgs = errors.New("too few arguments")
	// ErrEmptyIdentity is returned when a marker name normalizes to nothing.
	ErrEmptyIdentity = errors.New("empty marker identity")
)

// parseIntFromFloat parses a string that may be an integer ("2") or float ("2.0") into int64.
func parseIntFromFloat(s string) (int64, error) {
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if f != float64(int64(f)) {
		return 0, fmt.Errorf("parseIntFromFloat: %q is not a valid int64", s)
	}
	return int64(f), nil
}

// Parser provides pure []string -> core event conversion.
// It has zero external dependencies beyond a logger.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a new parser with only a logger dependency
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{logger: logger.With("component", "parser")}
}

// clean strips transport quoting from every argument in place.
func clean(args []string) []string {
	for i, v := range args {
		args[i] = strings.TrimSpace(util.FixEscapeQuotes(util.TrimQuotes(strings.TrimSpace(v))))
	}
	return args
}

func need(args []string, n int) error {
	if len(args) < n {
		return fmt.Errorf("%w: got %d, need %d", ErrTooFewArgs, len(args), n)
	}
	return nil
}

// float parses args[i], falling back to def when absent or malformed.
func (p *Parser) float(args []string, i int, field string, def float64) float64 {
	if i >= len(args) || args[i] == "" {
		return def
	}
	f, err := strconv.ParseFloat(args[i], 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		p.logger.Warn("Error parsing "+field, "value", args[i], "default", def)
		return def
	}
	return f
}

func (p *Parser) int(args []string, i int, field string, def int) int {
	if i >= len(args) || args[i] == "" {
		return def
	}
	v, err := parseIntFromFloat(args[i])
	if err != nil {
		p.logger.Warn("Error parsing "+field, "value", args[i], "default", def)
		return def
	}
	return int(v)
}

func (p *Parser) bool(args []string, i int, field string) bool {
	if i >= len(args) || args[i] == "" {
		return false
	}
	b, err := strconv.ParseBool(args[i])
	if err != nil {
		p.logger.Warn("Error parsing "+field, "value", args[i], "default", false)
		return false
	}
	return b
}

// ParseIdentity normalizes the marker name in args[0].
func (p *Parser) ParseIdentity(args []string) (core.Identity, error) {
	args = clean(args)
	if err := need(args, 1); err != nil {
		return "", err
	}
	id := core.NewIdentity(args[0])
	if id.IsZero() {
		return "", ErrEmptyIdentity
	}
	return id, nil
}
