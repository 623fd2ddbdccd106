/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

// Package logging builds the CLI logger and adapts it to the Logger
// interfaces of the core packages.
package logging

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// New creates a logger writing to w with "HH:MM:SS.ms" timestamps,
// filtering messages below level.
func New(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// Level returns DebugLevel when verbose is set and InfoLevel otherwise.
func Level(verbose bool) log.Level {
	if verbose {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// Adapter satisfies resolve.Logger and cdn.Logger over a charmbracelet logger.
type Adapter struct {
	logger *log.Logger
}

// NewAdapter wraps l.
func NewAdapter(l *log.Logger) *Adapter {
	return &Adapter{logger: l}
}

// Warning logs a formatted message at warn level.
func (a *Adapter) Warning(format string, args ...any) {
	a.logger.Warn(fmt.Sprintf(format, args...))
}

// Debug logs a formatted message at debug level.
func (a *Adapter) Debug(format string, args ...any) {
	a.logger.Debug(fmt.Sprintf(format, args...))
}

type ctxKey int

const loggerKey ctxKey = 0

// WithLogger returns a context carrying l.
func WithLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// FromContext returns the logger stored by WithLogger, or log.Default()
// when there is none.
func FromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
