package commands

import (
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/comb/internal/core/styles"
	"github.com/colonyops/comb/internal/hive"
	"github.com/colonyops/comb/pkg/iojson"
)

// ErrReported marks a failure whose details were already written as JSON.
var ErrReported = errors.New("command failed")

// tableFunc renders a successful result as a table. Returning nil rows falls
// back to the result text.
type tableFunc func(data any) (headers []string, rows [][]string)

// render writes res as JSON when --json is set and as text otherwise. A
// failed result becomes the command error.
func (f *Flags) render(c *cli.Command, res hive.Result, table tableFunc) error {
	w := c.Root().Writer

	if f.JSON {
		if err := iojson.WriteWith(w, c.Root().ErrWriter, res); err != nil {
			return err
		}
		if res.IsError {
			return ErrReported
		}
		return nil
	}

	if res.IsError {
		return errors.New(res.Text)
	}

	if table != nil {
		if headers, rows := table(res.Data); len(rows) > 0 {
			_, err := fmt.Fprintln(w, styles.Table(headers, rows))
			return err
		}
	}

	_, err := fmt.Fprintln(w, res.Text)
	return err
}
