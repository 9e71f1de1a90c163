// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bureau-foundation/hasher/lib/schema"
)

// Theme defines the colors used for text output. All colors use
// lipgloss ANSI 256-color codes for broad terminal compatibility.
// lipgloss drops the colors when stdout is not a terminal.
type Theme struct {
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Algorithm names next to digests.
	AlgorithmText lipgloss.Color

	// Per-file failures and traversal errors.
	ErrorText   lipgloss.Color
	WarningText lipgloss.Color

	// Run states.
	StateActive    lipgloss.Color
	StateCompleted lipgloss.Color
	StateFailed    lipgloss.Color
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText:     lipgloss.Color("252"),
	FaintText:      lipgloss.Color("245"),
	AlgorithmText:  lipgloss.Color("109"),
	ErrorText:      lipgloss.Color("203"),
	WarningText:    lipgloss.Color("214"),
	StateActive:    lipgloss.Color("75"),
	StateCompleted: lipgloss.Color("114"),
	StateFailed:    lipgloss.Color("203"),
}

// StateColor returns the color for a run state.
func (theme Theme) StateColor(state schema.RunState) lipgloss.Color {
	switch state {
	case schema.RunCompleted:
		return theme.StateCompleted
	case schema.RunFailed:
		return theme.StateFailed
	case schema.RunIdle:
		return theme.FaintText
	default:
		return theme.StateActive
	}
}

// Style returns a foreground style in color.
func (theme Theme) Style(color lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(color)
}
