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

// Package output writes command results as JSON.
package output

import (
	"bytes"
	"encoding/json"
	"io"
	"path/filepath"

	"github.com/spf13/viper"

	"bennypowers.dev/modcdn/fs"
)

// Encode returns v as JSON, indented when pretty is set. HTML characters
// are not escaped, since module sources are full of them.
func Encode(v any, pretty bool) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// JSON encodes v and writes it to stdout, or to the file named by
// viper's "output" setting when that is set. Missing parent directories
// of the output file are created.
func JSON(osfs fs.FileSystem, stdout io.Writer, v any) error {
	data, err := Encode(v, viper.GetBool("pretty"))
	if err != nil {
		return err
	}
	if outputPath := viper.GetString("output"); outputPath != "" {
		if err := osfs.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
			return err
		}
		return osfs.WriteFile(outputPath, data, 0644)
	}
	_, err = stdout.Write(data)
	return err
}
