package shield

import (
	"context"
	"fmt"
	"io"

	"github.com/lyndonlyu/secretshield/internal/report"
)

// DiffPresenter writes a unified diff of original against scrubbed text.
type DiffPresenter struct {
	Out   io.Writer
	Color bool
}

func (p DiffPresenter) ShowDiff(_ context.Context, original, scrubbed string) error {
	d, err := report.Diff(original, scrubbed, "original", "scrubbed")
	if err != nil {
		return err
	}
	if p.Color {
		d = report.ColorDiff(d)
	}
	_, err = fmt.Fprint(p.Out, d)
	return err
}
