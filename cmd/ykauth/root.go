package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// newRootCmd builds a fresh command tree. Tests call it once per case.
func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   "ykauth",
		Short: "Manage Yubikey OTP keys and verify one-time passwords",
		Long: `ykauth keeps one JSON file per Yubikey in a key directory and verifies
OTPs against them. Every accepted OTP advances the stored counters, so each
OTP is accepted at most once.

Settings are read from YKAUTH_* environment variables and an optional .env
file; flags override them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if _, ok := cmd.Annotations[skipApp]; ok {
				return nil
			}
			return a.init(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&a.opts.configDir, "config-dir", "", "key directory (overrides YKAUTH_CONFIG_DIR)")
	cmd.PersistentFlags().StringVar(&a.opts.logLevel, "log-level", "", "debug, info, warn or error (overrides YKAUTH_LOG_LEVEL)")

	cmd.AddCommand(
		newKeyCmd(a),
		newVerifyCmd(a),
		newGenerateCmd(a),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print the ykauth version",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipApp: ""},
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "ykauth", version)
		},
	}
}
