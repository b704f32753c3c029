package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "socialstore",
		Short:        "Collect, store and query tagged social media posts",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	root.AddCommand(migrateCmd())
	root.AddCommand(dropCmd())
	root.AddCommand(collectCmd())
	root.AddCommand(queryCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(runCmd())

	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the media and tag tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrate(cmd.Context())
		},
	}
}

func dropCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "drop",
		Short: "Drop the media and tag tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("refusing to drop tables without --yes")
			}
			return runDrop(cmd.Context())
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm dropping all stored media")
	return cmd
}

func collectCmd() *cobra.Command {
	var tags, users []string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Run one collection pass",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCollect(cmd.Context(), tags, users)
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tags to search (default: from config)")
	cmd.Flags().StringSliceVar(&users, "user", nil, "usernames to search (default: from config)")
	return cmd
}

func queryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query",
		Short: "List stored media, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.sinceSet = cmd.Flags().Changed("since")
			opts.untilSet = cmd.Flags().Changed("until")
			return runQuery(cmd.Context(), opts)
		},
	}

	cmd.Flags().Int64Var(&opts.since, "since", 0, "only items created after this unix time")
	cmd.Flags().Int64Var(&opts.until, "until", 0, "only items created before this unix time")
	cmd.Flags().StringSliceVar(&opts.tags, "tag", nil, "match any of these tags")
	cmd.Flags().StringSliceVar(&opts.users, "user", nil, "match any of these usernames")
	cmd.Flags().IntVar(&opts.count, "count", 20, "max items to show (0 for no limit)")
	cmd.Flags().BoolVar(&opts.json, "json", false, "output as JSON")
	return cmd
}

func serveCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}

func runCmd() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start daemon with scheduler and HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(port)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "server port (default: from config)")
	return cmd
}
