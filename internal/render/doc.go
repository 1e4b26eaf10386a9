// Package render turns a learned policy into something a person can read: a
// terminal grid, an HTML heatmap page and a TOML summary.
package render
