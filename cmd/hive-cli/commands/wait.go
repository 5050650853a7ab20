package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/coschain/cobra"
)

var WaitCmd = func() *cobra.Command {
	var timeoutMs int
	cmd := &cobra.Command{
		Use:     "wait",
		Short:   "wait for a transaction to be included in a block",
		Example: "wait [trx_id] --timeout 60000",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			p := pollerOf(cmd)
			if timeoutMs > 0 {
				p.Timeout = time.Duration(timeoutMs) * time.Millisecond
			}
			conf, err := waiterOf(cmd).WaitForTransaction(context.Background(), args[0], p.Timeout, p.Interval)
			if err != nil {
				fmt.Fprintln(out, failColor("FAILED"), err)
				return
			}
			printConfirmation(out, conf)
		},
	}
	cmd.Flags().IntVarP(&timeoutMs, "timeout", "", 0, "give up after this many milliseconds")
	return cmd
}
