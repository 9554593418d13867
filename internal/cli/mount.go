package cli

import (
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

func newMountCmd(a *app) *cobra.Command {
	var umount bool

	cmd := &cobra.Command{
		Use:   "mount <mountpoint>",
		Short: "Serve the storage as a read-only FUSE filesystem until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mnt := args[0]
			// Try unmount if requested
			if umount {
				// we ignore error here if not already mounted
				exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
			}
			return a.withServer(cmd, func(srv *server.Server) error {
				logger := util.GetLogger("main")

				if err := srv.Serve(mnt); err != nil {
					return err
				}
				logger.Info().Str("mountpoint", mnt).Str("storage", srv.Storage().Name()).Msg("Filesystem mounted successfully")

				// Setup signal handling for graceful shutdown
				signalChan := make(chan os.Signal, 1)
				signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
				defer signal.Stop(signalChan)

				select {
				case sig := <-signalChan:
					logger.Info().Str("signal", sig.String()).Msg("Received signal, unmounting filesystem")
				case <-cmd.Context().Done():
				}
				return srv.Unmount()
			})
		},
	}
	cmd.Flags().BoolVarP(&umount, "umount", "u", false,
		"Unmount the fs first if needed before mounting again. Useful for debuggers that don't exit properly.")
	return cmd
}
