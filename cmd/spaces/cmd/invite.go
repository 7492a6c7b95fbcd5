package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/alpacapps/spaces/internal/app"
	"github.com/alpacapps/spaces/internal/model"
	"github.com/alpacapps/spaces/internal/service"
)

// InviteCmd creates an invitation without signing in, which is how the
// first admin gets an account.
func InviteCmd() *cobra.Command {
	var role string

	invite := &cobra.Command{
		Use:   "invite <email>",
		Short: "Invite someone to the admin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := environment()
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			inv, err := a.UserService.Invite(nil, args[0], role)
			if errors.Is(err, service.ErrInviteEmail) {
				cmd.PrintErrf("Invitation created but the email failed: %v\n", err)
			} else if err != nil {
				return err
			}

			cmd.Printf("Invited %s as %s\n", inv.Email, inv.Role)
			cmd.Printf("Accept link: %s/auth/invite/%s\n", cfg.AppURL, inv.Token)
			return nil
		},
	}

	invite.Flags().StringVar(&role, "role", model.RoleAdmin, fmt.Sprintf("role to grant %v", model.Roles))
	return invite
}
