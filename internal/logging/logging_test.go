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

package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestAdapterLevels(t *testing.T) {
	tests := []struct {
		name      string
		verbose   bool
		wantDebug bool
	}{
		{"default", false, false},
		{"verbose", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			adapter := NewAdapter(New(&buf, Level(tt.verbose)))

			adapter.Warning("analyzing %s: %v", "index.js", "syntax error")
			adapter.Debug("attempt %d/%d", 1, 5)

			out := buf.String()
			if !strings.Contains(out, "analyzing index.js: syntax error") {
				t.Errorf("Missing warning in output: %q", out)
			}
			if got := strings.Contains(out, "attempt 1/5"); got != tt.wantDebug {
				t.Errorf("Debug line present = %v, want %v: %q", got, tt.wantDebug, out)
			}
		})
	}
}

func TestContextCarriesLogger(t *testing.T) {
	l := New(&bytes.Buffer{}, log.InfoLevel)
	ctx := WithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("FromContext did not return the stored logger")
	}
	if FromContext(context.Background()) != log.Default() {
		t.Error("FromContext without a logger should return log.Default()")
	}
}
