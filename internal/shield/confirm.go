package shield

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
)

const (
	ConfirmLabel = "Copy with Redactions"
	CancelLabel  = "Cancel"
)

// ConfirmMessage is the question put to the user before a redacted copy.
func ConfirmMessage(count int) string {
	return fmt.Sprintf("%d secret(s) will be redacted. Continue?", count)
}

// PromptConfirmer asks on the terminal.
type PromptConfirmer struct {
	// Accessible switches to a plain line prompt for screen readers.
	Accessible bool
}

func (p PromptConfirmer) Confirm(ctx context.Context, count int) (bool, error) {
	ok := false
	form := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(ConfirmMessage(count)).
			Affirmative(ConfirmLabel).
			Negative(CancelLabel).
			Value(&ok),
	)).WithAccessible(p.Accessible)

	if err := form.RunWithContext(ctx); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

// AutoConfirmer answers every question with the same value.
type AutoConfirmer bool

func (a AutoConfirmer) Confirm(context.Context, int) (bool, error) {
	return bool(a), nil
}
