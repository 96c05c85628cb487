// Package normalisers turns files into indexable plain text. Each
// sub-package handles one format; Registry picks one by file extension and
// falls back to plain text.
package normalisers
