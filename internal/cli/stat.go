package cli

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"github.com/themodernway/themodernway-server-core-sub001/filesystem"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

func newStatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show the metadata and attributes of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(cmd, func(srv *server.Server) error {
				n, err := srv.Storage().Root().File(args[0])
				if err != nil {
					return err
				}
				exists, err := n.Exists()
				if err != nil {
					return err
				}
				if !exists {
					return &filesystem.Error{Op: "stat", Storage: srv.Storage().Name(), Path: n.Path(), Err: filesystem.ErrNotFound}
				}
				meta, err := n.Metadata()
				if err != nil {
					return err
				}
				attrs, err := n.Attributes()
				if err != nil {
					return err
				}

				tbl := newTable(cmd.OutOrStdout(), "KEY", "VALUE")
				for _, k := range slices.Sorted(maps.Keys(meta)) {
					v := meta[k]
					if t, ok := v.(time.Time); ok {
						v = formatTime(t)
					}
					tbl.AddRow(k, fmt.Sprint(v))
				}
				tbl.AddRow("hidden", attrs.Hidden)
				if c := srv.Cache(); c != nil {
					tbl.AddRow("cached", c.IsDefined(n.Path()))
				}
				tbl.Print()
				return nil
			})
		},
	}
}
