package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moralis-scan/scan/internal/cloudquery/cache"
)

func newCacheCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Response cache maintenance"}
	cmd.AddCommand(newCacheClearCmd(root), newCachePruneCmd(root))
	return cmd
}

func newCacheClearCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached response",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, root.cfg.Cache)
			if err != nil {
				return err
			}
			defer closeStore()

			if err = store.Clear(ctx); err != nil {
				return fmt.Errorf("clearing cache: %w", err)
			}
			logger.Info().Ctx(ctx).Str("backend", root.cfg.Cache.Backend).Msg("cache cleared")
			cmd.Println("Cache cleared.")
			return nil
		},
	}
}

func newCachePruneCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove expired cached responses",
		Long:  "Removes expired entries from the file cache. Redis expires entries on its own.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore, err := openStore(ctx, root.cfg.Cache)
			if err != nil {
				return err
			}
			defer closeStore()

			pruner, ok := store.(cache.Pruner)
			if !ok {
				return errors.New("the " + root.cfg.Cache.Backend + " cache backend expires entries itself; nothing to prune")
			}
			removed, err := pruner.Prune(ctx)
			if err != nil {
				return fmt.Errorf("pruning cache: %w", err)
			}
			cmd.Printf("Removed %d expired entries.\n", removed)
			return nil
		},
	}
}
