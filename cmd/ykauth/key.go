package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/dmitrymomot/ykauth/pkg/logger"
	"github.com/dmitrymomot/ykauth/pkg/otpcipher"
	"github.com/dmitrymomot/ykauth/pkg/otpkey"
	"github.com/dmitrymomot/ykauth/pkg/yubitoken"
)

func newKeyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Create, inspect and delete key configurations",
	}
	cmd.AddCommand(
		newKeyCreateCmd(a),
		newKeyListCmd(a),
		newKeyShowCmd(a),
		newKeyDeleteCmd(a),
	)
	return cmd
}

type createOptions struct {
	publicID     string
	privateID    string
	secret       string
	promptSecret bool
	description  string
	sysUser      string
	output       string
}

func newKeyCreateCmd(a *app) *cobra.Command {
	var opts createOptions

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a new key",
		Long: `Registers a key under its public id and writes its file to the key
directory. A random private id and secret are generated when omitted; the
secret is printed once so it can be programmed into the token.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		format, err := parseOutputFormat(opts.output)
		if err != nil {
			return err
		}
		if _, err := a.manager.Lookup(opts.publicID); err == nil {
			return errors.Join(otpkey.ErrDuplicatePublicID, fmt.Errorf("public id %q", opts.publicID))
		}

		if opts.promptSecret {
			if opts.secret, err = readSecret(cmd); err != nil {
				return err
			}
		}
		if opts.privateID == "" {
			uid := make([]byte, yubitoken.UIDSize)
			if _, err := rand.Read(uid); err != nil {
				return err
			}
			opts.privateID = hex.EncodeToString(uid)
		}
		if opts.secret == "" {
			key, err := otpcipher.GenerateKey()
			if err != nil {
				return err
			}
			opts.secret = hex.EncodeToString(key)
		}

		cfg, err := a.manager.GetOrCreateConfig(opts.publicID)
		if err != nil {
			return err
		}
		if err := applyCreateOptions(cfg, opts); err != nil {
			_ = a.manager.DeleteConfig(cfg.PublicID())
			return err
		}
		if err := cfg.Save(); err != nil {
			return err
		}

		a.log.Info("key created", logger.PublicID(cfg.PublicIDModhex()), logger.Filename(cfg.Filename()))
		return writeKey(cmd.OutOrStdout(), format, newKeyView(cfg, true))
	})

	f := cmd.Flags()
	f.StringVar(&opts.publicID, "public-id", "", "public id in hex, up to 6 bytes")
	f.StringVar(&opts.privateID, "private-id", "", "private id in hex, up to 6 bytes (random when empty)")
	f.StringVar(&opts.secret, "secret", "", "AES secret as 32 hex characters (random when empty)")
	f.BoolVar(&opts.promptSecret, "prompt-secret", false, "read the secret from the terminal without echo")
	f.StringVar(&opts.description, "description", "", "free text description")
	f.StringVar(&opts.sysUser, "sys-user", "", "system account the key belongs to")
	f.StringVarP(&opts.output, "output", "o", string(outputText), "output format: text, json or yaml")
	cmd.MarkFlagsMutuallyExclusive("secret", "prompt-secret")
	_ = cmd.MarkFlagRequired("public-id")
	return cmd
}

func applyCreateOptions(cfg *otpkey.KeyConfig, opts createOptions) error {
	if err := cfg.SetPrivateID(opts.privateID); err != nil {
		return err
	}
	if err := cfg.SetSecretKey(opts.secret); err != nil {
		return err
	}
	if err := cfg.SetSysUser(opts.sysUser); err != nil {
		return err
	}
	cfg.SetDescription(opts.description)
	cfg.ComputeCrc()
	return nil
}

// readSecret prompts on a terminal and reads a plain line otherwise.
func readSecret(cmd *cobra.Command) (string, error) {
	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), "Secret key (32 hex characters): ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newKeyListCmd(a *app) *cobra.Command {
	var output string
	var reveal bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered keys",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, _ []string) error {
		format, err := parseOutputFormat(output)
		if err != nil {
			return err
		}
		list := a.manager.List()
		views := make([]keyView, 0, len(list))
		for _, c := range list {
			views = append(views, newKeyView(c, reveal))
		}
		return writeKeys(cmd.OutOrStdout(), format, views)
	})
	cmd.Flags().StringVarP(&output, "output", "o", string(outputText), "output format: text, json or yaml")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "include secrets in json and yaml output")
	return cmd
}

func newKeyShowCmd(a *app) *cobra.Command {
	var output string
	var reveal bool

	cmd := &cobra.Command{
		Use:   "show <public-id>",
		Short: "Show one key",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		format, err := parseOutputFormat(output)
		if err != nil {
			return err
		}
		c, err := a.manager.Lookup(args[0])
		if err != nil {
			return err
		}
		return writeKey(cmd.OutOrStdout(), format, newKeyView(c, reveal))
	})
	cmd.Flags().StringVarP(&output, "output", "o", string(outputText), "output format: text, json or yaml")
	cmd.Flags().BoolVar(&reveal, "reveal", false, "print the secret key")
	return cmd
}

func newKeyDeleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <public-id>",
		Short: "Delete a key and its file",
		Args:  cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		if err := a.manager.DeleteConfig(args[0]); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "deleted", strings.ToLower(args[0]))
		return nil
	})
	return cmd
}
