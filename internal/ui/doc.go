// Package ui renders evcs command output with [lipgloss] styles.
//
// [Palette] holds the named styles. [SessionSummary] and [BatchSummary] render the
// auth status and batch report blocks printed by the CLI.
package ui
