package cli

import (
	"io"

	"github.com/spf13/cobra"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

func newCatCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>...",
		Short: "Print file content, read through the content cache",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(cmd, func(srv *server.Server) error {
				for _, p := range args {
					rc, err := srv.Open(p)
					if err != nil {
						return err
					}
					_, err = io.Copy(cmd.OutOrStdout(), rc)
					rc.Close()
					if err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
