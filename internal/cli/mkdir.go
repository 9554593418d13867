package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

func newMkdirCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>...",
		Short: "Create folders along with missing parents",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(cmd, func(srv *server.Server) error {
				for _, p := range args {
					folder, err := srv.Storage().Root().Mkdirs(p)
					if err != nil {
						return err
					}
					fmt.Fprintln(cmd.OutOrStdout(), folder.Path())
				}
				return nil
			})
		},
	}
}
