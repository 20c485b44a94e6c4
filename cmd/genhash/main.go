// Command genhash prints a bcrypt digest suitable for the password_hash
// columns, using the same cost as the server.
package main

import (
	"errors"
	"fmt"
	"os"

	"staffdesk/internal/auth"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		password string
		cost     int
	)

	cmd := &cobra.Command{
		Use:   "genhash [password]",
		Short: "Print a bcrypt digest for a password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" && len(args) == 1 {
				password = args[0]
			}
			if password == "" {
				return errors.New("a password is required (--password or first argument)")
			}
			digest, err := auth.NewBcryptHasher(cost).Hash(password)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), digest)
			return nil
		},
	}

	cmd.Flags().StringVar(&password, "password", "", "password to hash")
	cmd.Flags().IntVar(&cost, "cost", auth.BcryptCost, "bcrypt cost")

	return cmd
}
