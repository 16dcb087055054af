package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/BradenHooton/adminauth/internal/auth"
)

var (
	totpIssuer  string
	totpAccount string
)

var totpSecretCmd = &cobra.Command{
	Use:   "totp-secret",
	Short: "Generate a TOTP secret for ADMIN_TOTP_SECRET",
	Long: `Generate a new TOTP secret for the admin account and print it together with
the otpauth:// provisioning URI. Set the secret as ADMIN_TOTP_SECRET and enroll
an authenticator app from the URI (or from GET /api/admin/mfa/qr once logged in).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		key, err := auth.GenerateTOTPKey(totpIssuer, totpAccount)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ADMIN_TOTP_SECRET=%s\n", key.Secret())
		fmt.Fprintf(out, "provisioning URI: %s\n", key.URL())
		return nil
	},
}

func init() {
	totpSecretCmd.Flags().StringVar(&totpIssuer, "issuer", "Admin Panel", "issuer shown in the authenticator app")
	totpSecretCmd.Flags().StringVar(&totpAccount, "account", "admin", "account name shown in the authenticator app")
	rootCmd.AddCommand(totpSecretCmd)
}
