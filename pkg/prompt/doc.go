// Package prompt collects form values interactively from a terminal.
//
// A Driver asks single questions; Fill walks an entity's fields and
// re-asks each one until it validates.
package prompt
