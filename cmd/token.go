package cmd

import (
	"fmt"

	"github.com/dev-brewery/koinon-rms-sub010/middleware"
	"github.com/dev-brewery/koinon-rms-sub010/models"

	"github.com/spf13/cobra"
)

func tokenCmd() *cobra.Command {
	var role string
	var campusID int64
	var locationIDs []int64

	cmd := &cobra.Command{
		Use:   "token [subject]",
		Short: "Issue a bearer token for staff or admin tooling",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			switch role {
			case models.RoleKiosk, models.RoleStaff, models.RoleAdmin:
			default:
				return fmt.Errorf("unknown role %q", role)
			}

			tokens := middleware.NewTokenService(nil, []byte(cfg.Auth.JWTSecret), cfg.Auth.TokenTTL)
			resp, err := tokens.Issue(models.Claims{
				Subject:     args[0],
				Role:        role,
				CampusID:    campusID,
				LocationIDs: locationIDs,
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), resp.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", models.RoleStaff, "kiosk, staff or admin")
	cmd.Flags().Int64Var(&campusID, "campus", 0, "campus id (0 = all)")
	cmd.Flags().Int64SliceVar(&locationIDs, "location", nil, "limit to these room ids (repeatable)")
	return cmd
}
