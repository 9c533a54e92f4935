package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"worldip/internal/ownership"
)

func newUserCommand(ctx *commandContext) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registry user profiles",
	}
	userCmd.AddCommand(newUserRegisterCommand(ctx))
	userCmd.AddCommand(newUserExistsCommand(ctx))
	return userCmd
}

func newUserRegisterCommand(ctx *commandContext) *cobra.Command {
	var company string
	var tags []string
	var email string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create a registry profile for the signed-in address",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ctx.identity(cmd.Context())
			if err != nil {
				return err
			}
			if strings.TrimSpace(email) != "" {
				id.Email = email
			}
			created, err := ensureUserProfile(cmd, ctx, id, company, cleanTags(tags))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			if created {
				fmt.Fprintln(out, renderStatusLine("Profile", statusOK, "registered "+id.Address.Checksum(), colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Profile", statusInfo, "already registered", colorize))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&company, "company", "", "Company or organisation")
	cmd.Flags().StringSliceVar(&tags, "tags", nil, "Comma-separated profile tags")
	cmd.Flags().StringVar(&email, "email", "", "Contact email (defaults to the one given at login)")
	return cmd
}

func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func newUserExistsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "exists [ADDR]",
		Short: "Check whether an address has a registry profile",
		Long:  "Check whether ADDR (default: the signed-in address) has a registry profile. Exits 1 when it does not.",
		Args:  argsRange(0, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var addr ownership.Address
			if len(args) == 1 {
				parsed, err := ownership.ParseAddress(args[0])
				if err != nil {
					return usageError{err: err}
				}
				addr = parsed
			} else {
				id, err := ctx.identity(cmd.Context())
				if err != nil {
					return err
				}
				addr = id.Address
			}
			client, err := ctx.registryClient()
			if err != nil {
				return err
			}
			exists, err := client.UserExists(cmd.Context(), addr)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintln(out, renderStatusLine(addr.Short(), statusOK, "registered", shouldColorize(out)))
				return nil
			}
			fmt.Fprintln(out, renderStatusLine(addr.Short(), statusWarn, "no profile", shouldColorize(out)))
			return errUserMissing
		},
	}
}
