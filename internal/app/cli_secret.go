package app

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"scrapbook/internal/config"
	"scrapbook/internal/logx"
	"scrapbook/internal/secret"
)

func newSecretCmd(configFile *string, secrets secret.Store) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secret",
		Short: "Manage credentials named by store.password_ref and s3.secret_ref",
	}
	cmd.AddCommand(newSecretSetCmd(secrets), newSecretDeleteCmd(secrets), newSecretCheckCmd(configFile, secrets))
	return cmd
}

func newSecretSetCmd(secrets secret.Store) *cobra.Command {
	var value string
	cmd := &cobra.Command{
		Use:   "set <ref>",
		Short: "Store a secret under ref (value from --value or stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if value == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read secret from stdin: %w", err)
				}
				value = strings.TrimRight(string(data), "\r\n")
			}
			if value == "" {
				return errors.New("empty secret value")
			}
			if err := secrets.Set(args[0], []byte(value)); err != nil {
				return err
			}
			logx.FromContext(cmd.Context()).Info("secret stored", "ref", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&value, "value", "", "secret value (read from stdin when omitted)")
	return cmd
}

func newSecretDeleteCmd(secrets secret.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <ref>",
		Short: "Remove the secret stored under ref",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := secrets.Delete(args[0]); err != nil {
				return err
			}
			logx.FromContext(cmd.Context()).Info("secret deleted", "ref", args[0])
			return nil
		},
	}
}

// check resolves every *_ref the config names, without printing values.
func newSecretCheckCmd(configFile *string, secrets secret.Store) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify that every configured secret ref resolves",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configFile)
			if err != nil {
				return err
			}
			refs := []struct{ setting, ref string }{
				{"store.password_ref", cfg.Store.PasswordRef},
				{"s3.secret_ref", cfg.S3.SecretRef},
			}
			out := cmd.OutOrStdout()
			var missing []string
			for _, r := range refs {
				if r.ref == "" {
					continue
				}
				if _, err := secret.Resolve(secrets, r.ref, ""); err != nil {
					fmt.Fprintf(out, "%s (%s): missing\n", r.setting, r.ref)
					missing = append(missing, r.setting)
					continue
				}
				fmt.Fprintf(out, "%s (%s): ok\n", r.setting, r.ref)
			}
			if len(missing) > 0 {
				return fmt.Errorf("unresolved secrets: %s", strings.Join(missing, ", "))
			}
			return nil
		},
	}
}
