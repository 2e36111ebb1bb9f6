// Package csvfile reads raw CSV files into core datasets and writes cleaned
// datasets and quarantine batches back out.
//
// Reading sniffs the source encoding (byte order marks, UTF-8 validity,
// Windows-1252 and Latin-1 fallbacks), decodes to UTF-8 through streaming
// readers, normalizes the header and infers one type per column.
package csvfile
