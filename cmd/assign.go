package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
)

var assignAs string

var assignCmd = &cobra.Command{
	Use:   "assign",
	Short: "Distribute pending grievances to employees",
	Long:  `Run one assignment batch on behalf of an admin or super admin, e.g. from a cron job.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		deps, err := initializeDependencies(ctx)
		if err != nil {
			log.Fatalf("failed to initialize dependencies: %v", err)
		}
		defer deps.Close()

		var id int64
		if err := deps.Gorm.WithContext(ctx).Raw("SELECT id FROM users WHERE email = ?", assignAs).Row().Scan(&id); err != nil {
			return fmt.Errorf("no user with email %q: %w", assignAs, err)
		}
		actor, err := deps.Auth.LoadActor(ctx, id)
		if err != nil {
			return err
		}

		n, err := deps.Grievances.Assign(ctx, actor)
		if err != nil {
			return err
		}
		deps.Logger.Info("assignment batch finished", "assigned", n, "actor_id", actor.ID)
		return nil
	},
}

func init() {
	assignCmd.Flags().StringVar(&assignAs, "as", "superadmin@mail.com", "email of the admin running the batch")
}
