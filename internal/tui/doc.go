// Package tui provides terminal user interface components for lab-ctl.
//
// This package uses the Bubble Tea framework for the interactive container
// picker behind "lab-ctl accounts assign --pick".
//
// # Container Picker
//
// The picker lists live lab containers and lets the operator toggle the
// ones to assign:
//
//	result, err := tui.RunPicker("alice", containers, held)
//	switch result.Action {
//	case tui.ActionAssign:
//	    // Assign result.Containers
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// # Picker Features
//
//   - Keyboard navigation (j/k or arrows) and filtering with /
//   - Space or x toggles a container, Enter assigns the selection
//   - Containers the account already holds are marked and cannot be toggled
//   - Color-coded status indicators
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
