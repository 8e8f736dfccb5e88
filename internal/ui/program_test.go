package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

// TestRunOnceModelQuitsImmediately tests that the model exits after the
// first render instead of waiting for input
func TestRunOnceModelQuitsImmediately(t *testing.T) {
	model := NewRunOnceModel("hello")

	cmd := model.Init()
	if cmd == nil {
		t.Fatal("Init() returned nil, want a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Errorf("Init() command produced %T, want tea.QuitMsg", cmd())
	}
}

// TestRunOnceModelViewReturnsContent tests that the view is the content as given
func TestRunOnceModelViewReturnsContent(t *testing.T) {
	model := NewRunOnceModel("device report")
	if got := model.View(); got != "device report" {
		t.Errorf("View() = %q, want %q", got, "device report")
	}

	updated, _ := model.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	if got := updated.View(); got != "device report" {
		t.Errorf("View() after resize = %q, want %q", got, "device report")
	}
}
