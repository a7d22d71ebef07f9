package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"homecare-portal/internal/cache"
	"homecare-portal/internal/db"
)

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	var skipDeps bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and reach dependencies",
		Long: `Load and validate the configuration, then connect to the session database and,
when configured, the Redis provider cache.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config ok (env=%s, backend=%s)\n", cfg.Env, cfg.BackendURL)
			if skipDeps {
				return nil
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
			defer cancel()

			database, err := db.Connect(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			_ = database.Close()
			fmt.Fprintln(out, "database ok")

			if cfg.RedisAddr != "" {
				client, err := cache.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
				if err != nil {
					return err
				}
				_ = client.Close()
				fmt.Fprintln(out, "redis ok")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&skipDeps, "config-only", false, "only validate configuration")
	return cmd
}
