package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/mattn/go-isatty"

	"github.com/matzehuels/disgraph/pkg/export"
)

// confirmer asks on the terminal before a large raster export. Without a
// terminal on stdin it declines, so scripted runs fail fast instead of
// blocking.
type confirmer struct {
	in   *os.File
	warn io.Writer
	yes  bool
}

func newConfirmer(in *os.File, warn io.Writer) *confirmer { return &confirmer{in: in, warn: warn} }

var _ export.Confirmer = (*confirmer)(nil)

func (c *confirmer) ConfirmLargeExport(ctx context.Context, width, height int) (bool, error) {
	if c.yes {
		return true, nil
	}
	if !isTerminal(c.in) {
		printWarning(c.warn, "%dx%d image is over the size limit; pass --yes to export anyway", width, height)
		return false, nil
	}
	ok := false
	field := huh.NewConfirm().
		Title(fmt.Sprintf("Export a %d×%d image?", width, height)).
		Description("Drawing an image this large can take a long time and a lot of memory.").
		Affirmative("Export").
		Negative("Cancel").
		Value(&ok)
	if err := huh.NewForm(huh.NewGroup(field)).RunWithContext(ctx); err != nil {
		if err == huh.ErrUserAborted {
			return false, nil
		}
		return false, err
	}
	return ok, nil
}

func isTerminal(f *os.File) bool {
	if f == nil {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
