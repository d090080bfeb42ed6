// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Permtree Contributors

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/permtree/permtree/internal/cache"
	"github.com/permtree/permtree/internal/config"
	"github.com/permtree/permtree/internal/engine"
	"github.com/permtree/permtree/internal/logging"
	"github.com/permtree/permtree/internal/storage/flatfile"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the permtree CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "permtree",
		Short: "permtree - context-sensitive permission engine",
		Long: `permtree resolves effective permissions, group inheritance and
metadata for users and groups under situational contexts (world, server),
backed by a flat-file store.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	// Add subcommands
	cmd.AddCommand(NewCheckCmd())
	cmd.AddCommand(NewInfoCmd())
	cmd.AddCommand(NewTrackCmd())

	return cmd
}

// openEngine loads configuration, sets up logging, and builds an engine
// with all stored groups and tracks loaded.
func openEngine(cmd *cobra.Command) (*engine.Engine, error) {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	logging.SetDefault("permtree", version, cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	cache.RegisterMetrics(prometheus.DefaultRegisterer)

	store, err := flatfile.New(cfg.Storage.Path)
	if err != nil {
		return nil, err
	}
	eng := engine.New(cfg, store)

	ctx := cmd.Context()
	if err := eng.LoadAllGroups(ctx); err != nil {
		return nil, err
	}
	if err := eng.LoadAllTracks(ctx); err != nil {
		return nil, err
	}
	return eng, nil
}
