// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil provides HTTP response helpers for the agent's transport.
//
// [ReadResponse] bounds every JSON API body read at [MaxResponseSize] and
// transparently decodes the response's Content-Encoding. The agent
// advertises [AcceptEncoding] on long-poll requests because message bodies
// can carry large job definitions; the server may answer with zstd, lz4
// or gzip. The limit applies to the decoded bytes, so a small compressed
// body cannot expand without bound.
package netutil
