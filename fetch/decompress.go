package fetch

import (
	"bytes"
	"compress/gzip"
	"io"

	"github.com/andybalholm/brotli"
)

// decompressBody detects and decompresses gzip or Brotli response bodies.
// Some sources ignore Accept-Encoding negotiation and always ship compressed
// bodies, so detection is by magic bytes first and the Content-Encoding
// header second.
//
// Returns the (possibly replaced) body and whether decompression happened.
func decompressBody(body []byte, contentEncoding string) ([]byte, bool, error) {
	if len(body) == 0 {
		return body, false, nil
	}

	// gzip magic bytes: 1f 8b
	if len(body) >= 2 && body[0] == 0x1f && body[1] == 0x8b {
		reader, err := gzip.NewReader(bytes.NewReader(body))
		if err != nil {
			return nil, false, err
		}
		defer reader.Close()

		decompressed, err := io.ReadAll(reader)
		if err != nil {
			return nil, false, err
		}
		return decompressed, true, nil
	}

	// Brotli has no magic bytes; trust the header, then fall back to a
	// first-byte heuristic (streams commonly start in 0x80-0x8f).
	if contentEncoding == "br" || (body[0] >= 0x80 && body[0] <= 0x8f) {
		reader := brotli.NewReader(bytes.NewReader(body))
		decompressed, err := io.ReadAll(reader)
		if err != nil {
			// Heuristic misfire - treat as uncompressed
			return body, false, nil
		}
		return decompressed, true, nil
	}

	return body, false, nil
}
