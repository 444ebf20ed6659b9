package commands

import (
	"context"
	"strings"

	"auscultify/internal/models"
	contextutils "auscultify/internal/utils"

	"github.com/spf13/cobra"
)

// UserCommands returns the user management commands
func UserCommands(env *Env) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "User management commands",
		Long: `User management commands.

Available commands:
  list            - List all users
  reset-password  - Set a new password for a user
  ensure-admin    - Create the configured admin account if it is missing`,
	}

	userCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE:  runListUsers(env),
	})
	userCmd.AddCommand(&cobra.Command{
		Use:   "reset-password [email]",
		Short: "Reset password for a user",
		Long:  `Reset the password of the account with the given e-mail. The e-mail is prompted for when omitted.`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  runResetPassword(env),
	})
	userCmd.AddCommand(&cobra.Command{
		Use:   "ensure-admin",
		Short: "Create the admin account if it does not exist",
		Args:  cobra.NoArgs,
		RunE:  runEnsureAdmin(env),
	})

	return userCmd
}

func runListUsers(env *Env) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		userService, err := env.Container.GetUserService()
		if err != nil {
			return err
		}

		users, err := userService.ListUsers(ctx)
		if err != nil {
			env.Logger.Error(ctx, "Failed to list users", err)
			return contextutils.WrapError(err, "failed to list users")
		}
		if len(users) == 0 {
			env.printf("No users found\n")
			return nil
		}

		env.printf("%-5s %-35s %-9s %-9s %-9s %-6s %-12s %-7s\n", "ID", "Email", "Correct", "Failed", "Answered", "Streak", "Last day", "Public")
		env.printf("%s\n", strings.Repeat("-", 100))
		for _, u := range users {
			lastDay := "-"
			if u.LastAnswerDate.Valid {
				lastDay = u.LastAnswerDate.Time.Format(models.DateLayout)
			}
			public := "no"
			if u.IsPublic {
				public = "yes"
			}
			env.printf("%-5d %-35s %-9d %-9d %-9d %-6d %-12s %-7s\n",
				u.ID, u.Email, u.TotalCorrect, u.TotalFailed, u.TotalAnswered, u.Streak, lastDay, public)
		}
		env.printf("\n%d users\n", len(users))
		return nil
	}
}

func runResetPassword(env *Env) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		var email string
		if len(args) > 0 {
			email = args[0]
		} else {
			entered, err := env.ReadLine("Enter e-mail: ")
			if err != nil {
				return contextutils.WrapErrorf(err, "failed to read e-mail")
			}
			email = entered
		}
		email = strings.TrimSpace(email)
		if email == "" {
			return contextutils.ErrorWithContextf("e-mail is required")
		}

		password, err := env.ReadSecret("Enter new password: ")
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to read password")
		}
		if password == "" {
			return contextutils.ErrorWithContextf("password cannot be empty")
		}
		confirm, err := env.ReadSecret("Confirm new password: ")
		if err != nil {
			return contextutils.WrapErrorf(err, "failed to read password confirmation")
		}
		if password != confirm {
			return contextutils.ErrorWithContextf("passwords do not match")
		}

		return resetPassword(ctx, env, email, password)
	}
}

func resetPassword(ctx context.Context, env *Env, email, password string) error {
	userService, err := env.Container.GetUserService()
	if err != nil {
		return err
	}
	if err := userService.ResetPassword(ctx, email, password); err != nil {
		env.Logger.Error(ctx, "Failed to reset password", err, map[string]interface{}{"email": contextutils.MaskEmail(email)})
		return contextutils.WrapErrorf(err, "failed to reset password for %s", email)
	}

	env.printf("Password reset for %s\n", email)
	env.Logger.Info(ctx, "Password reset", map[string]interface{}{"email": contextutils.MaskEmail(email)})
	return nil
}

func runEnsureAdmin(env *Env) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		userService, err := env.Container.GetUserService()
		if err != nil {
			return err
		}
		created, err := userService.EnsureAdmin(cmd.Context())
		if err != nil {
			return contextutils.WrapError(err, "failed to ensure admin user")
		}
		if created {
			env.printf("Admin account %s created\n", env.Config.Server.AdminEmail)
		} else {
			env.printf("Admin account %s already exists\n", env.Config.Server.AdminEmail)
		}
		return nil
	}
}
