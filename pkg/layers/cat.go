package layers

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/tmpfiles/pkg/errors"
	"github.com/arthur-debert/tmpfiles/pkg/types"
	"github.com/spf13/afero"
)

// Cat writes the merged configuration: every winning file preceded by a
// comment naming it. Disabled files are listed but have no content.
func Cat(w io.Writer, fsys afero.Fs, files []types.SourceFile) error {
	for i, f := range files {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if f.Disabled {
			if _, err := fmt.Fprintf(w, "# %s (disabled)\n", f.Path); err != nil {
				return err
			}
			continue
		}

		data, err := afero.ReadFile(fsys, f.Path)
		if err != nil {
			return errors.Wrapf(err, errors.ErrConfigLoad, "cannot read %s", f.Path)
		}
		content := string(data)
		if content != "" && !strings.HasSuffix(content, "\n") {
			content += "\n"
		}
		if _, err := fmt.Fprintf(w, "# %s\n%s", f.Path, content); err != nil {
			return err
		}
	}
	return nil
}
