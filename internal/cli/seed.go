package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/themodernway/themodernway-server-core-sub001/adapters"
	"github.com/themodernway/themodernway-server-core-sub001/requests"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <manifest>",
		Short: "Create files and folders listed in a manifest",
		Long: `Create the files and folders listed in a YAML or JSON manifest. File
content comes from the first source that opens, by priority.

Example manifest:
  - path: /docs
    type: dir
  - path: /docs/readme.txt
    type: file
    sources:
      - type: http
        url: https://example.com/readme.txt
      - type: inline
        content: offline copy`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withServer(cmd, func(srv *server.Server) error {
				reqs, err := requests.NewDecoder(adapters.NewDefaultRegistry()).LoadManifest(args[0])
				if err != nil {
					return err
				}
				results := requests.Apply(cmd.Context(), srv.Storage().Root(), reqs)

				tbl := newTable(cmd.OutOrStdout(), "TYPE", "PATH", "RESULT")
				for _, r := range results {
					result := "ok"
					if r.Err != nil {
						result = r.Err.Error()
					}
					tbl.AddRow(r.Type, r.Path, result)
				}
				tbl.Print()

				if failed := requests.Failed(results); len(failed) > 0 {
					return fmt.Errorf("%d of %d requests failed", len(failed), len(results))
				}
				return nil
			})
		},
	}
}
