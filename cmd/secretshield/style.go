package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleBanner  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	styleSuccess = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleDim     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleConf    = []struct {
		min   float64
		style lipgloss.Style
	}{
		{0.95, lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))},
		{0.85, lipgloss.NewStyle().Foreground(lipgloss.Color("11"))},
		{0, lipgloss.NewStyle().Foreground(lipgloss.Color("8"))},
	}
)

func renderConfidence(c float64) string {
	text := fmt.Sprintf("%.2f", c)
	for _, s := range styleConf {
		if c >= s.min {
			return s.style.Render(text)
		}
	}
	return text
}
