// Package gharchive reads GH Archive hourly files.
//
// One gzip NDJSON file exists per UTC hour, named YYYY-MM-DD-H.json.gz.
// Sources fetch a whole hour as decoded records from the public HTTP
// endpoint, a local folder or an S3 compatible bucket mirror. Errors carry
// perr codes so callers can tell a missing hour from corrupt content.
//
// Design choices:
// - Stream with bufio.Scanner with a 32MB line cap to handle huge commits.
// - Records stay map[string]any; typed decoding is left to core/event.
// - A malformed line fails the hour rather than being skipped.
package gharchive
