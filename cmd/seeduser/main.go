// Command seeduser creates or refreshes an admin account in the configured
// store. It is idempotent: an account matching the username or email is
// updated in place and reactivated.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"staffdesk/internal/auth"
	"staffdesk/internal/config"
	"staffdesk/internal/infra"
	"staffdesk/internal/model"
	"staffdesk/internal/repository"

	"github.com/spf13/cobra"
)

const defaultSeedTimeout = 30 * time.Second

type seedOptions struct {
	name     string
	username string
	email    string
	password string
	timeout  time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &seedOptions{}

	cmd := &cobra.Command{
		Use:   "seeduser",
		Short: "Create or update an admin account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.name, "name", "Administrator", "display name")
	cmd.Flags().StringVar(&opts.username, "username", "admin", "login username")
	cmd.Flags().StringVar(&opts.email, "email", "admin@staffdesk.local", "login email")
	cmd.Flags().StringVar(&opts.password, "password", "", "password (required)")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", defaultSeedTimeout, "timeout for store operations")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}

func runSeed(cmd *cobra.Command, opts *seedOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	store, err := infra.OpenStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer func() { _ = store.Close(context.Background()) }()

	acct, created, err := seedAdmin(ctx, store.Accounts, auth.NewBcryptHasher(auth.BcryptCost), opts)
	if err != nil {
		return err
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	cmd.Printf("Admin account %q %s (%s)\n", acct.Username, verb, acct.ID)
	return nil
}

// seedAdmin upserts the admin account and reports whether it was created.
func seedAdmin(ctx context.Context, accounts repository.AccountRepository, hasher auth.PasswordHasher, opts *seedOptions) (*model.Account, bool, error) {
	username := strings.TrimSpace(opts.username)
	email := strings.ToLower(strings.TrimSpace(opts.email))
	if username == "" || email == "" {
		return nil, false, errors.New("username and email are required")
	}

	hash, err := hasher.Hash(opts.password)
	if err != nil {
		return nil, false, fmt.Errorf("hash password: %w", err)
	}

	acct, err := accounts.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		acct = &model.Account{
			Name:         strings.TrimSpace(opts.name),
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			Role:         model.RoleAdmin,
			Active:       true,
		}
		if err := accounts.Create(ctx, acct); err != nil {
			return nil, false, fmt.Errorf("create account: %w", err)
		}
		return acct, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("find account: %w", err)
	}

	acct.Name = strings.TrimSpace(opts.name)
	acct.Username = username
	acct.Email = email
	acct.PasswordHash = hash
	acct.Role = model.RoleAdmin
	acct.Active = true
	if err := accounts.Update(ctx, acct); err != nil {
		return nil, false, fmt.Errorf("update account: %w", err)
	}
	return acct, false, nil
}
