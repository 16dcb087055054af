package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	pkgauth "github.com/BradenHooton/adminauth/pkg/auth"
)

var (
	hashCost      int
	hashSkipCheck bool
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password [password]",
	Short: "Print a bcrypt hash for ADMIN_PASSWORD_HASH",
	Long: `Print a bcrypt hash suitable for ADMIN_PASSWORD_HASH.

The password is taken from the first argument, or read from stdin when no
argument is given so it stays out of shell history.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHashPassword,
}

func init() {
	hashPasswordCmd.Flags().IntVar(&hashCost, "cost", pkgauth.BcryptCost, "bcrypt cost factor")
	hashPasswordCmd.Flags().BoolVar(&hashSkipCheck, "skip-strength-check", false, "hash the password even if it is weak")
	rootCmd.AddCommand(hashPasswordCmd)
}

func runHashPassword(cmd *cobra.Command, args []string) error {
	var password string
	if len(args) == 1 {
		password = args[0]
	} else {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	}

	if password == "" {
		return errors.New("password cannot be empty")
	}
	if !hashSkipCheck {
		if err := pkgauth.ValidatePassword(password); err != nil {
			return err
		}
	}

	hash, err := pkgauth.HashPasswordWithCost(password, hashCost)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}
