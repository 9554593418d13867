package cli

import (
	"github.com/spf13/cobra"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <path>...",
		Aliases: []string{"delete"},
		Short:   "Delete files or empty folders",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(cmd, func(srv *server.Server) error {
				for _, p := range args {
					n, err := srv.Storage().Root().File(p)
					if err != nil {
						return err
					}
					if err := n.Delete(); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}
