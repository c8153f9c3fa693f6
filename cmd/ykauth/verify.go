package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/ykauth/pkg/otpkey"
)

// errRejected signals an invalid OTP. main exits with status 1 without
// printing it.
var errRejected = errors.New("otp rejected")

func newVerifyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify [otp]",
		Short: "Verify a one-time password",
		Long: `Verifies an OTP and prints OK with the owning system user, or FAIL.
The exit status is 0 for a valid OTP and 1 otherwise.

Without an argument, or with "-", OTPs are read from standard input one per
line and a result line is printed for each. In this mode the exit status is
only non-zero for operational errors.

With YKAUTH_MAX_FAILURES set, a key is refused after that many failed
attempts within YKAUTH_FAILURE_WINDOW. The count is kept in redis when
YKAUTH_REDIS_URL is set and is then shared by every invocation. Otherwise it
lives in process memory and only throttles within one stream.`,
		Args: cobra.MaximumNArgs(1),
	}
	cmd.RunE = a.run(func(cmd *cobra.Command, args []string) error {
		if len(args) == 1 && args[0] != "-" {
			res, err := a.manager.Verify(cmd.Context(), args[0])
			if err != nil && !errors.Is(err, otpkey.ErrMalformedOtp) && !errors.Is(err, otpkey.ErrTooManyAttempts) {
				return err
			}
			printResult(cmd.OutOrStdout(), res, err)
			if !res.Valid {
				return errRejected
			}
			return nil
		}
		return verifyStream(cmd, a.manager)
	})
	return cmd
}

func verifyStream(cmd *cobra.Command, m *otpkey.Manager) error {
	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		res, err := m.Verify(cmd.Context(), line)
		if err != nil && !errors.Is(err, otpkey.ErrMalformedOtp) && !errors.Is(err, otpkey.ErrTooManyAttempts) {
			return err
		}
		printResult(cmd.OutOrStdout(), res, err)
	}
	return scanner.Err()
}

func printResult(w io.Writer, res otpkey.Result, err error) {
	switch {
	case res.Valid:
		fmt.Fprintf(w, "OK %s %s\n", res.PublicID, res.SysUser)
	case errors.Is(err, otpkey.ErrTooManyAttempts):
		fmt.Fprintf(w, "FAIL %s throttled\n", res.PublicID)
	case err != nil:
		fmt.Fprintln(w, "FAIL malformed")
	default:
		fmt.Fprintf(w, "FAIL %s\n", res.PublicID)
	}
}
