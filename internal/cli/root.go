// Package cli implements the vfsctl command line over a storage.
package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/themodernway/themodernway-server-core-sub001/config"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
	"github.com/themodernway/themodernway-server-core-sub001/server"
)

// app carries the global flags and the server they configure to every command
type app struct {
	configPath string
	basePath   string
	name       string
	readOnly   bool
	noCache    bool
	createBase bool
	verbose    int

	opts []server.Option
}

// NewRootCmd builds the vfsctl command tree. Server options are passed to
// every server a command creates.
func NewRootCmd(opts ...server.Option) *cobra.Command {
	a := &app{opts: opts}

	root := &cobra.Command{
		Use:   "vfsctl",
		Short: "Browse and manage a virtual filesystem storage",
		Long: `vfsctl opens a storage rooted at a local folder and works on it through
virtual paths: listing, reading through the content cache, writing, deleting,
seeding from manifests and mounting a read-only FUSE view.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&a.configPath, "config", "c", "", "Path to a YAML or JSON config file")
	flags.StringVarP(&a.basePath, "base", "b", "", "Storage base path (overrides config)")
	flags.StringVar(&a.name, "name", "", "Storage name used in logs and errors")
	flags.BoolVar(&a.readOnly, "read-only", false, "Refuse create, mkdir and delete")
	flags.BoolVar(&a.noCache, "no-cache", false, "Read directly from the storage")
	flags.BoolVar(&a.createBase, "create-base", false, "Create the base path if missing")
	flags.IntVarP(&a.verbose, "verbose", "v", config.WarnVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")

	root.AddCommand(
		newLsCmd(a),
		newCatCmd(a),
		newPutCmd(a),
		newRmCmd(a),
		newMkdirCmd(a),
		newStatCmd(a),
		newSeedCmd(a),
		newMountCmd(a),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

// loadConfig layers defaults, the config file and explicitly set flags
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if a.configPath != "" {
		override, err := config.LoadConfigOverrideFile(a.configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg.Merge(override)
	}

	flags := cmd.Flags()
	override := &config.ConfigOverride{}
	if flags.Changed("verbose") || a.configPath == "" {
		override.LogLvl = util.Pointer(a.verbose)
	}
	if flags.Changed("base") {
		override.BasePath = util.Pointer(a.basePath)
	}
	if flags.Changed("name") {
		override.StorageName = util.Pointer(a.name)
	}
	if flags.Changed("read-only") {
		override.Writable = util.Pointer(!a.readOnly)
	}
	if flags.Changed("no-cache") {
		override.CacheEnabled = util.Pointer(!a.noCache)
	}
	if flags.Changed("create-base") {
		override.CreateBase = util.Pointer(a.createBase)
	}
	cfg.Merge(override)
	return cfg, nil
}

// withServer opens the server described by the flags, runs fn and closes
// the server again
func (a *app) withServer(cmd *cobra.Command, fn func(*server.Server) error) (err error) {
	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	util.InitializeLoggerTo(cmd.ErrOrStderr(), cfg.LogLvl)

	srv, err := server.New(cfg, a.opts...)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, srv.Close())
	}()
	return fn(srv)
}
