// interp/source.go
package interp

import (
	"bytes"
	"fmt"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

var (
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// DecodeSource turns raw file bytes into source text. A leading byte
// order mark is honoured and removed; UTF-16 input is transcoded.
// Anything else must already be valid UTF-8.
func DecodeSource(b []byte) (string, error) {
	if !bytes.HasPrefix(b, bomUTF16LE) && !bytes.HasPrefix(b, bomUTF16BE) {
		if err := checkUTF8(string(b)); err != nil {
			return "", err
		}
	}
	out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), b)
	if err != nil {
		return "", fmt.Errorf("decode source: %w", err)
	}
	return string(out), nil
}

// ReadSource reads and decodes a source file.
func ReadSource(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	src, err := DecodeSource(b)
	if err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}
