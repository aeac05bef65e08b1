package compression

import (
	"bytes"
	"fmt"
	"io"

	"github.com/pierrec/lz4/v4"
)

// CompressLz4 wraps src into an lz4 frame.
func CompressLz4(src []byte) ([]byte, error) {

	output := bytes.Buffer{}
	zw := lz4.NewWriter(&output)

	if _, err := zw.Write(src); err != nil {
		return nil, fmt.Errorf("unable to compress: %w", err)
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("unable to finish lz4 frame: %w", err)
	}

	return output.Bytes(), nil
}

func DecompressLz4(src []byte) ([]byte, error) {

	zr := lz4.NewReader(bytes.NewReader(src))

	out, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("unable to decompress: %w", err)
	}

	return out, nil
}
