// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// MaxResponseSize bounds decoded JSON API response bodies: 64 MB.
const MaxResponseSize int64 = 64 << 20

// AcceptEncoding is the Accept-Encoding header value the transport sends.
const AcceptEncoding = "zstd, lz4, gzip"

// ReadResponse reads and decodes the response body, up to MaxResponseSize
// decoded bytes. Reading past the limit is an error rather than a silent
// truncation, since a truncated JSON document would fail to parse with a
// misleading message.
func ReadResponse(response *http.Response) ([]byte, error) {
	reader, closeDecoder, err := decodingReader(response.Header.Get("Content-Encoding"), response.Body)
	if err != nil {
		return nil, err
	}
	defer closeDecoder()

	data, err := io.ReadAll(io.LimitReader(reader, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(data)) > MaxResponseSize {
		return nil, fmt.Errorf("response body exceeds %d bytes", MaxResponseSize)
	}
	return data, nil
}

// MaxErrorBodySize bounds what ErrorBody keeps of an error response: 64 KB.
const MaxErrorBodySize int64 = 64 << 10

// ErrorBody reads at most MaxErrorBodySize bytes of an error response
// body, trimmed, for diagnostics. Read and decode errors are ignored:
// whatever was read is returned, and a body in an unsupported encoding
// is returned undecoded.
func ErrorBody(response *http.Response) string {
	reader, closeDecoder, err := decodingReader(response.Header.Get("Content-Encoding"), response.Body)
	if err != nil {
		reader, closeDecoder = response.Body, func() {}
	}
	defer closeDecoder()

	data, _ := io.ReadAll(io.LimitReader(reader, MaxErrorBodySize))
	return strings.TrimSpace(string(data))
}

// decodingReader wraps body according to the Content-Encoding header. The
// returned close function releases decoder resources.
func decodingReader(contentEncoding string, body io.Reader) (io.Reader, func(), error) {
	switch strings.ToLower(strings.TrimSpace(contentEncoding)) {
	case "", "identity":
		return body, func() {}, nil
	case "zstd":
		decoder, err := zstd.NewReader(body)
		if err != nil {
			return nil, nil, fmt.Errorf("creating zstd decoder: %w", err)
		}
		return decoder, decoder.Close, nil
	case "lz4":
		return lz4.NewReader(body), func() {}, nil
	case "gzip":
		decoder, err := gzip.NewReader(body)
		if err != nil {
			return nil, nil, fmt.Errorf("creating gzip decoder: %w", err)
		}
		return decoder, func() { decoder.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unsupported content encoding %q", contentEncoding)
	}
}
