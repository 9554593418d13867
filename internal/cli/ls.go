package cli

import (
	"github.com/spf13/cobra"
	vfs "github.com/themodernway/themodernway-server-core-sub001"
	"github.com/themodernway/themodernway-server-core-sub001/filesystem"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

func newLsCmd(a *app) *cobra.Command {
	var recursive, files, folders, plain bool

	cmd := &cobra.Command{
		Use:     "ls [path]",
		Aliases: []string{"list"},
		Short:   "List the items of a folder",
		Long: `List the visible items of a folder, sorted by name.

Examples:
  # List the storage root
  vfsctl -b /srv/content ls

  # Every file below /reports, one path per line
  vfsctl ls /reports -r --files --plain`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "/"
			if len(args) == 1 {
				target = args[0]
			}
			var opts []filesystem.ItemOption
			if recursive {
				opts = append(opts, filesystem.ItemRecursive)
			}
			if files {
				opts = append(opts, filesystem.ItemFile)
			}
			if folders {
				opts = append(opts, filesystem.ItemFolder)
			}
			return a.withServer(cmd, func(srv *server.Server) error {
				return runLs(cmd, srv, target, plain, opts)
			})
		},
	}
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Descend into sub folders")
	cmd.Flags().BoolVar(&files, "files", false, "Include files (default both kinds)")
	cmd.Flags().BoolVar(&folders, "folders", false, "Include folders (default both kinds)")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print one path per line for scripting")
	return cmd
}

func runLs(cmd *cobra.Command, srv *server.Server, target string, plain bool, opts []filesystem.ItemOption) error {
	n, err := srv.Storage().Root().File(target)
	if err != nil {
		return err
	}
	folder, ok := n.(*filesystem.FolderNode)
	if !ok {
		exists, err := n.Exists()
		if err != nil {
			return err
		}
		kind := filesystem.ErrNotFolder
		if !exists {
			kind = filesystem.ErrNotFound
		}
		return &filesystem.Error{Op: "ls", Storage: srv.Storage().Name(), Path: n.Path(), Err: kind}
	}
	items, err := folder.Items(opts...)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if plain {
		for item, err := range items {
			if err != nil {
				return err
			}
			if _, err := out.Write([]byte(item.Path() + "\n")); err != nil {
				return err
			}
		}
		return nil
	}

	tbl := newTable(out, "MODE", "SIZE", "MODIFIED", "PATH")
	for item, err := range items {
		if err != nil {
			return err
		}
		attrs, err := item.Attributes()
		if err != nil {
			return err
		}
		size, err := item.Size()
		if err != nil {
			return err
		}
		modified, err := item.LastModified()
		if err != nil {
			return err
		}
		tbl.AddRow(vfs.ModeString(attrs.Folder, attrs.Readable, attrs.Writable), size, formatTime(modified), item.Path())
	}
	tbl.Print()
	return nil
}
