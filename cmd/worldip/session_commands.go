package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"worldip/internal/logging"
	"worldip/internal/ownership"
	"worldip/internal/registry"
	"worldip/internal/services"
	"worldip/internal/session"
)

// notAvailable is the placeholder the registry expects for profile fields
// the user left empty.
const notAvailable = "NA"

type identityOutput struct {
	Address    string `json:"address"`
	Username   string `json:"username"`
	Email      string `json:"email,omitempty"`
	Provider   string `json:"provider"`
	SignedInAt string `json:"signed_in_at"`
	Registered *bool  `json:"registered,omitempty"`
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var address string
	var email string
	var provider string
	var username string
	var noRegister bool

	cmd := &cobra.Command{
		Use:   "login --address 0x…",
		Short: "Sign in with a wallet address",
		Long: `Record the wallet address that owns new registrations.

When a registry is configured the address is looked up and a user profile
is created for it if none exists yet. Use --no-register to skip that step.`,
		Args: exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := ownership.ParseAddress(address)
			if err != nil {
				return usageError{err: err}
			}
			prov, err := session.ParseProvider(provider)
			if err != nil {
				return usageError{err: err}
			}
			store, err := ctx.sessionStore()
			if err != nil {
				return err
			}
			id, err := store.Save(cmd.Context(), session.Identity{
				Address:  addr,
				Email:    email,
				Username: username,
				Provider: prov,
			})
			if err != nil {
				return fmt.Errorf("%w: %w", services.ErrIO, err)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			fmt.Fprintln(out, renderStatusLine("Signed in", statusOK, id.Username, colorize))
			fmt.Fprintln(out, renderField("Address", id.Address.Checksum()))

			if noRegister || ctx.configValue().RequireAPI() != nil {
				return nil
			}
			registered, err := ensureUserProfile(cmd, ctx, id, notAvailable, nil)
			if err != nil {
				return err
			}
			if registered {
				fmt.Fprintln(out, renderStatusLine("Profile", statusOK, "created in registry", colorize))
			} else {
				fmt.Fprintln(out, renderStatusLine("Profile", statusInfo, "already registered", colorize))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&address, "address", "", "Wallet address (0x followed by 40 hex digits)")
	cmd.Flags().StringVar(&email, "email", "", "Contact email stored with the profile")
	cmd.Flags().StringVar(&provider, "provider", "", "How the address was authenticated (email-otp, oauth, wallet)")
	cmd.Flags().StringVar(&username, "username", "", "Display name (generated from the address when empty)")
	cmd.Flags().BoolVar(&noRegister, "no-register", false, "Do not create a registry profile")
	return cmd
}

// ensureUserProfile registers id with the registry unless a profile already
// exists. It reports whether a profile was created.
func ensureUserProfile(cmd *cobra.Command, ctx *commandContext, id session.Identity, company string, tags []string) (bool, error) {
	client, err := ctx.registryClient()
	if err != nil {
		return false, err
	}
	exists, err := client.UserExists(cmd.Context(), id.Address)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}
	resp, err := client.RegisterUser(cmd.Context(), registry.User{
		Username:    id.Username,
		Email:       orNotAvailable(id.Email),
		Company:     orNotAvailable(company),
		Tags:        tags,
		UserAddress: id.Address.Checksum(),
	})
	if err != nil {
		return false, err
	}
	logging.WithContext(cmd.Context(), ctx.log()).Info("user profile registered",
		logging.String(logging.FieldEventType, "user_registered"),
		logging.String("address", id.Address.String()),
		logging.String("transaction", resp.Transaction),
	)
	return true, nil
}

func orNotAvailable(value string) string {
	if strings.TrimSpace(value) == "" {
		return notAvailable
	}
	return strings.TrimSpace(value)
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the signed-in identity",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.sessionStore()
			if err != nil {
				return err
			}
			if err := store.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("%w: %w", services.ErrIO, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return nil
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	var check bool

	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in identity",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := ctx.identity(cmd.Context())
			if err != nil {
				return err
			}
			var registered *bool
			if check {
				client, err := ctx.registryClient()
				if err != nil {
					return err
				}
				exists, err := client.UserExists(cmd.Context(), id.Address)
				if err != nil {
					return err
				}
				registered = &exists
			}

			if asJSON {
				return writeJSON(cmd, identityOutput{
					Address:    id.Address.Checksum(),
					Username:   id.Username,
					Email:      id.Email,
					Provider:   string(id.Provider),
					SignedInAt: id.SignedInAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
					Registered: registered,
				})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderField("Username", id.Username))
			fmt.Fprintln(out, renderField("Address", id.Address.Checksum()))
			fmt.Fprintln(out, renderField("Email", id.Email))
			fmt.Fprintln(out, renderField("Provider", string(id.Provider)))
			fmt.Fprintln(out, renderField("Signed in", formatTime(id.SignedInAt)))
			if registered != nil {
				fmt.Fprintln(out, renderField("Registered", yesNo(*registered)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the identity as JSON")
	cmd.Flags().BoolVar(&check, "check", false, "Ask the registry whether a profile exists")
	return cmd
}
