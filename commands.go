package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/mannyrivera2010/go-quadingest/pkg/ingest"
	"github.com/mannyrivera2010/go-quadingest/pkg/quadstore"
)

// openReadOnly opens an existing store for inspection.
func openReadOnly(ctx context.Context, path string) (quadstore.Store, error) {
	store, err := quadstore.Open(ctx, quadstore.OpenOptions{Path: path, ReadOnly: true})
	if err != nil {
		return nil, &ingest.StoreOpenError{StorePath: path, Err: err}
	}
	return store, nil
}

func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log <store-path>",
		Short: "Show version history, newest first",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			store, err := openReadOnly(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			versions, err := store.Log(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printLog(cmd.OutOrStdout(), versions)
			return nil
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "show at most this many versions (0 = all)")
	return cmd
}

func printLog(w io.Writer, versions []*quadstore.VersionInfo) {
	for _, v := range versions {
		fmt.Fprintf(w, "version %d\n", v.Version)
		fmt.Fprintf(w, "Digest:  %s\n", v.Digest)
		fmt.Fprintf(w, "Date:    %s\n", v.Timestamp.Format(time.RFC1123Z))
		fmt.Fprintf(w, "Changes: +%d -%d\n\n", v.Stats.Added, v.Stats.Deleted)
	}
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <store-path> <version>",
		Short: "Print the delta stored for a version",
		Args:  exactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			store, err := openReadOnly(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			for change, err := range store.Changes(cmd.Context(), version) {
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", change.Type.Symbol(), change.Quad)
			}
			return nil
		},
	}
}
