package ingest

import "errors"

var errBadTimestamp = errors.New("ingest: timestamp must be an RFC3339 string or unix-millisecond number")
