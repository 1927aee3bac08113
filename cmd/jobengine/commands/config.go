package commands

import (
	"fmt"
	"os"

	jeconfig "github.com/jholhewres/jobengine/pkg/jobengine/config"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultVaultPath = "./data/jobengine.vault"

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration and manage secrets",
	}
	cmd.AddCommand(newConfigShowCmd(), newConfigSetSecretCmd())
	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("database.backend:        %s\n", cfg.Database.Backend)
			fmt.Printf("database.sqlite_path:     %s\n", cfg.Database.SQLitePath)
			fmt.Printf("queue.backend:            %s\n", cfg.Queue.Backend)
			fmt.Printf("queue.backoff_base:       %s\n", cfg.Queue.BackoffBase)
			fmt.Printf("queue.max_attempts:       %d\n", cfg.Queue.MaxAttempts)
			fmt.Printf("scheduler.safety_sync:    %s\n", cfg.Scheduler.SafetySyncInterval)
			fmt.Printf("scheduler.claim_limit:    %d\n", cfg.Scheduler.ClaimLimit)
			fmt.Printf("worker.concurrency:       %d\n", cfg.Worker.Concurrency)
			fmt.Printf("worker.default_timeout:   %s\n", cfg.Worker.DefaultJobTimeout)
			fmt.Printf("worker.default_retries:   %d\n", cfg.Worker.DefaultMaxRetries)
			fmt.Printf("logging:                  %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
			fmt.Printf("retention:                %dd executions, %dd logs\n", cfg.Retention.ExecutionDays, cfg.Retention.LogDays)
			return nil
		},
	}
}

// newConfigSetSecretCmd stores a secret either in the encrypted vault
// or the OS keyring, prompting for values with no terminal echo.
// config.ResolveSecret itself never prompts: it only reads a vault that
// is already unlocked.
func newConfigSetSecretCmd() *cobra.Command {
	var useKeyring bool
	var vaultPath string

	cmd := &cobra.Command{
		Use:   "set-secret <name>",
		Short: "Store a secret (DB password, notification token) securely",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]

			fmt.Printf("value for %q: ", name)
			valueBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("reading secret value: %w", err)
			}
			value := string(valueBytes)

			if useKeyring {
				if err := jeconfig.StoreKeyringSecret(name, value); err != nil {
					return fmt.Errorf("storing secret in OS keyring: %w", err)
				}
				fmt.Printf("stored %q in OS keyring\n", name)
				return nil
			}

			vault := jeconfig.NewVault(vaultPath)
			fmt.Print("vault password: ")
			passwordBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
			fmt.Println()
			if err != nil {
				return fmt.Errorf("reading vault password: %w", err)
			}
			password := string(passwordBytes)

			if vault.Exists() {
				if err := vault.Unlock(password); err != nil {
					return fmt.Errorf("unlocking vault: %w", err)
				}
			} else {
				if err := vault.Create(password); err != nil {
					return fmt.Errorf("creating vault: %w", err)
				}
			}
			defer vault.Lock()

			if err := vault.Set(name, value); err != nil {
				return fmt.Errorf("storing secret in vault: %w", err)
			}
			fmt.Printf("stored %q in vault at %s\n", name, vaultPath)
			return nil
		},
	}

	cmd.Flags().BoolVar(&useKeyring, "keyring", false, "store in the OS keyring instead of the encrypted vault")
	cmd.Flags().StringVar(&vaultPath, "vault-path", defaultVaultPath, "vault file path")
	return cmd
}
