// Package preflight provides readiness checks for the filesystem paths and
// external tools an export depends on.
//
// These checks run in two contexts:
//   - The export command calls RunAll before Compiling; any failed check
//     aborts the job before sources are staged.
//   - The "montage doctor" command prints every result, including the
//     optional ones.
package preflight
