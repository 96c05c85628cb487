// Package html extracts readable text from HTML pages, dropping scripts,
// styles and markup.
package html
