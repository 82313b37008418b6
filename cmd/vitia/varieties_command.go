package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/emilythestrangee/vitia/backend/internal/cache"
	"github.com/emilythestrangee/vitia/backend/internal/catalog"
)

func newVarietiesCommand(ctx *commandContext) *cobra.Command {
	varietiesCmd := &cobra.Command{
		Use:   "varieties",
		Short: "Manage the grape variety catalog",
	}

	varietiesCmd.AddCommand(&cobra.Command{
		Use:   "import <file.toml>",
		Short: "Insert or update varieties from a TOML catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := catalog.Load(args[0])
			if err != nil {
				return err
			}

			svc, err := ctx.openDatabase()
			if err != nil {
				return err
			}
			defer svc.Close()

			res, err := catalog.Import(cmd.Context(), svc.GetDB(), entries)
			if err != nil {
				return err
			}

			// Cached pages would otherwise keep serving the old catalog.
			cfg, logger, _ := ctx.ensureConfig()
			if cfg.RedisAddr != "" {
				client, err := cache.Connect(cmd.Context(), cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
				if err != nil {
					logger.Warn("variety cache not invalidated", "error", err)
				} else {
					defer client.Close()
					if err := cache.NewVarietyCache(client, cfg.CacheTTL).Invalidate(cmd.Context()); err != nil {
						logger.Warn("variety cache not invalidated", "error", err)
					}
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d created, %d updated\n", res.Created, res.Updated)
			return nil
		},
	})

	return varietiesCmd
}
