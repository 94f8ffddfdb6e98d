// Package assets resolves source references and font families to bytes.
//
// The export engine only sees the SourceStore and FontStore interfaces.
// Filesystem stores back the CLI; memory stores back tests and embedders
// that already hold the bytes.
package assets
