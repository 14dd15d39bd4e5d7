package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"franchise-crm/internal/client"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Provision users through the functions service",
	}
	cmd.AddCommand(newUserCreateCmd(a), newUserUpdateCmd(a), newUserDeleteCmd(a))
	return cmd
}

func (a *app) canProvision() error {
	if a.v.GetString("service-key") != "" {
		return nil
	}
	if err := a.requireLogin(); err != nil {
		return err
	}
	if !a.session.Info().Capabilities.CanManageUsers {
		return errors.New("you do not have permission to manage users")
	}
	return nil
}

func newUserCreateCmd(a *app) *cobra.Command {
	var in client.CreateUser
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create an identity account and its profile",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.canProvision(); err != nil {
				return err
			}
			id, err := a.api.CreateUser(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Email, "email", "", "email")
	f.StringVar(&in.Password, "password", "", "initial password")
	f.StringVar(&in.FullName, "name", "", "full name")
	f.StringVar(&in.Role, "role", "user", "superadmin | admin | user")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newUserUpdateCmd(a *app) *cobra.Command {
	var name, email, password, role string
	cmd := &cobra.Command{
		Use:   "update <user-id>",
		Short: "Update account and profile fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.canProvision(); err != nil {
				return err
			}
			in := client.UpdateUser{UserID: args[0]}
			// 只发送显式传入的字段
			set := func(flag string, v *string) *string {
				if cmd.Flags().Changed(flag) {
					return v
				}
				return nil
			}
			in.FullName = set("name", &name)
			in.Email = set("email", &email)
			in.Password = set("password", &password)
			in.Role = set("role", &role)
			if err := a.api.UpdateUser(cmd.Context(), in); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "updated", args[0])
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&name, "name", "", "full name")
	f.StringVar(&email, "email", "", "email")
	f.StringVar(&password, "password", "", "new password")
	f.StringVar(&role, "role", "", "superadmin | admin | user")
	return cmd
}

func newUserDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <user-id>",
		Short: "Delete a user (profile first, then the account)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.canProvision(); err != nil {
				return err
			}
			if err := a.api.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return nil
		},
	}
}
