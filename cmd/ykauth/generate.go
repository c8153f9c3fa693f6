package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/ykauth/pkg/softkey"
)

func newGenerateCmd(a *app) *cobra.Command {
	var count int

	cmd := &cobra.Command{
		Use:   "generate <public-id>",
		Short: "Print the next OTPs a token with the stored state would emit",
		Long: `Emulates the token of a stored key in software and prints the OTPs that
follow the last accepted one. The stored state is not changed; the OTPs are
accepted once each by verify, in order.

Meant for provisioning checks and tests. Anyone able to run it can log in as
the key owner, since it reads the key secret.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		if count < 1 {
			return fmt.Errorf("count must be positive, got %d", count)
		}
		c, err := a.manager.Lookup(args[0])
		if err != nil {
			return err
		}
		dev, err := softkey.FromConfig(c)
		if err != nil {
			return err
		}
		for range count {
			otp, err := dev.NextOTP()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), otp)
		}
		return nil
	})
	cmd.Flags().IntVarP(&count, "count", "n", 1, "number of OTPs to print")
	return cmd
}
