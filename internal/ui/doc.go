// Package ui renders CLI output with lipgloss.
//
// [Styles] is the shared palette. [Palette.State] colors a credential state and [Palette.Fields]
// prints aligned label/value blocks, used by the tidal status and track commands.
package ui
