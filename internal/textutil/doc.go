// Package textutil turns project names into filesystem-safe file names.
package textutil
