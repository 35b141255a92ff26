package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/istimaa-app/istimaa/internal/generation"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the transcript cache",
	}

	cacheCmd.AddCommand(newCacheShowCommand(ctx))
	cacheCmd.AddCommand(newCacheInvalidateCommand(ctx))
	cacheCmd.AddCommand(newCachePurgeCommand(ctx))

	return cacheCmd
}

func newCacheShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <source-id>",
		Short: "Show the cached transcript for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			transcript, err := store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if transcript == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No cached transcript")
				return nil
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Source:     %s\n", args[0])
			fmt.Fprintf(out, "Language:   %s\n", transcript.Language)
			fmt.Fprintf(out, "Origin:     %s\n", transcript.SourceKind)
			fmt.Fprintf(out, "Confidence: %.2f\n", transcript.Confidence)
			fmt.Fprintf(out, "Segments:   %d\n", len(transcript.Segments))
			fmt.Fprintln(out)
			fmt.Fprintln(out, transcript.Text)
			return nil
		},
	}
}

func newCacheInvalidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "invalidate <source-id>",
		Short: "Drop the cached transcript for a source",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Invalidate(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Invalidated %s\n", args[0])
			return nil
		},
	}
}

func newCachePurgeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Remove expired transcript cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openCache()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := store.Purge(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d expired entries\n", removed)
			return nil
		},
	}
}

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show remaining daily quota per generation provider",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := ctx.ensureLogger()

			pool, limits := ctx.buildProviders(cfg)
			quota := generation.NewQuotaManager(
				generation.NewFileQuotaStore(cfg.Providers.QuotaPath), limits, logger)

			state := quota.Snapshot()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Quota day: %s\n", state.Date)
			if pool.Size() == 0 {
				fmt.Fprintln(out, "No providers configured")
				return nil
			}
			for _, p := range pool.Providers() {
				id := p.Descriptor.ID
				fmt.Fprintf(out, "%-12s %d / %d remaining (priority %d)\n",
					id, state.Remaining[id], limits[id], p.Descriptor.Priority)
			}
			return nil
		},
	}
}
