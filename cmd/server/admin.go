package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"coursehub/internal/db"
	"coursehub/internal/models"
	"coursehub/internal/service"
)

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// setup runs the migration as part of opening the database.
			cfg, database, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer database.Close()

			logger.Info().Str("driver", cfg.DBDriver).Msg("schema up to date")
			return nil
		},
	}
}

func newUserCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newUserCreateCmd(opts), newUserPromoteCmd(opts))
	return cmd
}

func newUserCreateCmd(opts *options) *cobra.Command {
	var (
		username string
		email    string
		admin    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user, reading the password from stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, database, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer database.Close()

			fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
			password, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && password == "" {
				return fmt.Errorf("read password: %w", err)
			}
			password = strings.TrimRight(password, "\r\n")

			role := models.RoleUser
			if admin {
				role = models.RoleAdmin
			}

			auth := service.NewAuthService(database, logger)
			user, err := auth.CreateUser(cmd.Context(), service.RegisterInput{
				Username: username,
				Email:    email,
				Password: password,
			}, role)
			if errors.Is(err, db.ErrDuplicateKey) {
				return fmt.Errorf("username or email already registered")
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (id %d)\n", user.Role, user.Username, user.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username (3-32 letters or digits)")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant the admin role")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func newUserPromoteCmd(opts *options) *cobra.Command {
	var (
		email string
		role  string
	)

	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Change the role of an existing user",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, database, logger, err := setup(opts)
			if err != nil {
				return err
			}
			defer database.Close()

			auth := service.NewAuthService(database, logger)
			if err := auth.SetRole(cmd.Context(), email, role); err != nil {
				if errors.Is(err, db.ErrNotFound) {
					return fmt.Errorf("no user with email %s", email)
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", email, role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email of the user to change")
	cmd.Flags().StringVar(&role, "role", models.RoleAdmin, "new role (user or admin)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}
