package compound

import (
	"github.com/cockroachdb/errors"
)

// ErrDefinition marks every error returned by Build. Such errors describe a
// broken definition and never occur while decoding or encoding.
var ErrDefinition = errors.New("compound: invalid definition")

func definitionf(format string, args ...any) error {
	return errors.Wrapf(ErrDefinition, format, args...)
}
