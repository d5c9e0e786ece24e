package integrations

import (
	"log/slog"
	"os"

	"github.com/kerbaras/novels/pkg/data"
	"github.com/pkg/errors"
)

// Processor rewrites the text of a downloaded work. It returns the new text
// and how many places changed.
type Processor interface {
	Process(text string) (string, int, error)
}

// ProcessFile runs p over the file at path and replaces it when anything
// changed.
func ProcessFile(path string, p Processor) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, data.NewError(data.KindStorage, "read "+path, errors.WithStack(err))
	}
	out, changed, err := p.Process(string(raw))
	if err != nil {
		return 0, err
	}
	if changed == 0 {
		return 0, nil
	}
	if err := data.WriteFile(path, []byte(out)); err != nil {
		return 0, data.NewError(data.KindStorage, "write "+path, err)
	}
	slog.Info("file rewritten", "path", path, "changed", changed)
	return changed, nil
}
