package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/coschain/cobra"
	"github.com/coschain/hivebridge/app"
	"github.com/coschain/hivebridge/prototype"
	"github.com/pkg/errors"
)

var VoteCmd = func() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:     "vote",
		Short:   "vote on a post or comment",
		Example: "vote [voter] [author] [permlink] [weight]",
		Args:    cobra.ExactArgs(4),
		Run: func(cmd *cobra.Command, args []string) {
			vote(cmd, args, wait)
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the vote is included in a block")
	return cmd
}

func vote(cmd *cobra.Command, args []string, wait bool) {
	out := cmd.OutOrStdout()
	weight, err := strconv.ParseFloat(args[3], 64)
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	intent := &prototype.VoteIntent{Voter: args[0], Author: args[1], Permlink: args[2], Weight: weight}
	res := votesOf(cmd).CastVote(context.Background(), intent)
	printBroadcast(out, res)
	confirm(cmd, wait, res)
}

var UnvoteCmd = func() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:     "unvote",
		Short:   "remove a vote",
		Example: "unvote [voter] [author] [permlink]",
		Args:    cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			res := votesOf(cmd).RemoveVote(context.Background(), args[0], args[1], args[2])
			printBroadcast(cmd.OutOrStdout(), res)
			confirm(cmd, wait, res)
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the removal is included in a block")
	return cmd
}

var StarCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "star",
		Short:   "rate a post with 0 to 5 stars",
		Example: "star [voter] [author] [permlink] [stars]",
		Args:    cobra.ExactArgs(4),
		Run:     star,
	}
	return cmd
}

func star(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	stars, err := strconv.Atoi(args[3])
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	printBroadcast(out, votesOf(cmd).CastStarVote(context.Background(), args[0], args[1], args[2], stars))
}

var BatchVoteCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "batchvote",
		Short:   "cast several votes in one transaction",
		Example: "batchvote [voter] [author/permlink:weight]...",
		Args:    cobra.MinimumNArgs(2),
		Run:     batchVote,
	}
	return cmd
}

func parseVoteTarget(voter, arg string) (*prototype.VoteIntent, error) {
	target, weightStr := arg, "100"
	if i := strings.LastIndex(arg, ":"); i >= 0 {
		target, weightStr = arg[:i], arg[i+1:]
	}
	parts := strings.SplitN(target, "/", 2)
	if len(parts) != 2 {
		return nil, errors.Errorf("%s: expected author/permlink[:weight]", arg)
	}
	weight, err := strconv.ParseFloat(weightStr, 64)
	if err != nil {
		return nil, errors.Errorf("%s: %v", arg, err)
	}
	return &prototype.VoteIntent{Voter: voter, Author: strings.TrimPrefix(parts[0], "@"), Permlink: parts[1], Weight: weight}, nil
}

func batchVote(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	intents := make([]*prototype.VoteIntent, 0, len(args)-1)
	for _, arg := range args[1:] {
		intent, err := parseVoteTarget(args[0], arg)
		if err != nil {
			fmt.Fprintln(out, err)
			return
		}
		intents = append(intents, intent)
	}
	for _, r := range votesOf(cmd).BatchVote(context.Background(), intents) {
		fmt.Fprintf(out, "@%s/%s ", r.Intent.Author, r.Intent.Permlink)
		printBroadcast(out, &r.BroadcastResult)
	}
}

var WeightCmd = func() *cobra.Command {
	var last string
	cmd := &cobra.Command{
		Use:     "weight",
		Short:   "suggest a vote weight from the account's voting power",
		Example: "weight [account] --last 2024-01-02T15:04:05",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			var lastVote *time.Time
			if last != "" {
				t, err := prototype.ParseChainTime(last)
				if err != nil {
					fmt.Fprintln(out, err)
					return
				}
				lastVote = &t.Time
			}
			w := votesOf(cmd).CalculateOptimalVoteWeight(context.Background(), args[0], lastVote)
			fmt.Fprintln(out, fmt.Sprintf("suggested weight: %.0f%%", w))
		},
	}
	cmd.Flags().StringVarP(&last, "last", "l", "", "time of the account's last vote")
	return cmd
}

var CanVoteCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "canvote",
		Short:   "check whether an account has enough voting power",
		Example: "canvote [account]",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(cmd.OutOrStdout(), votesOf(cmd).CanUserVote(context.Background(), args[0]))
		},
	}
	return cmd
}

var CheckVoteCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "checkvote",
		Short:   "show a voter's vote on a post",
		Example: "checkvote [author] [permlink] [voter]",
		Args:    cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			rec := votesOf(cmd).ResolveUserVote(context.Background(), args[0], args[1], args[2])
			if rec == nil {
				fmt.Fprintln(out, "no vote")
				return
			}
			printJSON(out, rec)
		},
	}
	return cmd
}

var SignUrlCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "signurl",
		Short:   "print a signer link that casts the vote in a browser",
		Example: "signurl [voter] [author] [permlink] [weight]",
		Args:    cobra.ExactArgs(4),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			weight, err := strconv.ParseFloat(args[3], 64)
			if err != nil {
				fmt.Fprintln(out, err)
				return
			}
			fmt.Fprintln(out, app.GetHiveSignerVoteUrl(configOf(cmd).SignerURL, args[0], args[1], args[2], weight))
		},
	}
	return cmd
}
