package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

func newPutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "put <path> [source|-]",
		Short: "Write a file from a local file or stdin",
		Long: `Write the content of a local file, or stdin when the source is "-" or
omitted, to a virtual path. Missing parent folders are created and an
existing file is replaced atomically.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(cmd, func(srv *server.Server) error {
				root := srv.Storage().Root()
				var err error
				if len(args) == 2 && args[1] != "-" {
					_, err = root.CreateFromPath(args[0], args[1])
				} else {
					_, err = root.Create(args[0], cmd.InOrStdin())
				}
				if err != nil {
					return err
				}
				n, err := root.File(args[0])
				if err != nil {
					return err
				}
				size, err := n.Size()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %d bytes\n", n.Path(), size)
				return nil
			})
		},
	}
}
