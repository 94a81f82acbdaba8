package svgdoc

import (
	"bytes"
	"io"
	"os"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"

	"github.com/matzehuels/svgpng/pkg/errors"
)

// gzipMagic is the two-byte prefix of every gzip member.
var gzipMagic = []byte{0x1f, 0x8b}

// utf8BOM is stripped from decoded text.
var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// ReadFile reads a source document from disk.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeIORead, err, "failed to read %s", path)
	}
	return data, nil
}

// IsCompressed reports whether data starts with the gzip magic bytes.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, gzipMagic)
}

// Decode turns raw source bytes into document text. Gzip input (svgz) is
// decompressed first; the result must be valid UTF-8.
func Decode(data []byte) (string, error) {
	if IsCompressed(data) {
		raw, err := decompress(data)
		if err != nil {
			return "", err
		}
		data = raw
	}

	if !utf8.Valid(data) {
		return "", errors.New(errors.ErrCodeFormatEncoding, "document is not valid UTF-8")
	}

	return string(bytes.TrimPrefix(data, utf8BOM)), nil
}

func decompress(data []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormatDecompress, err, "failed to decompress gzip stream")
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFormatDecompress, err, "failed to decompress gzip stream")
	}
	return out, nil
}
