package commands

import (
	"context"
	"fmt"
	"strconv"

	"github.com/coschain/cobra"
	"github.com/coschain/hivebridge/app"
	"github.com/coschain/hivebridge/prototype"
)

var PostCmd = func() *cobra.Command {
	var (
		tags      string
		community string
		wait      bool
	)
	cmd := &cobra.Command{
		Use:     "post",
		Short:   "publish a post",
		Example: "post [author] [title] [body] --tags hive,dev",
		Args:    cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			intent := &prototype.PostIntent{
				Author:       args[0],
				Title:        args[1],
				Body:         args[2],
				Tags:         splitTags(tags),
				SubCommunity: community,
			}
			res := postsOf(cmd).PublishPost(context.Background(), intent)
			printPublish(cmd.OutOrStdout(), res)
			confirm(cmd, wait, &res.BroadcastResult)
		},
	}
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "comma separated tags")
	cmd.Flags().StringVarP(&community, "community", "c", "", "community to post in")
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the post is included in a block")
	return cmd
}

var ReplyCmd = func() *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:     "reply",
		Short:   "reply to a post or comment",
		Example: "reply [author] [parent_author] [parent_permlink] [body]",
		Args:    cobra.ExactArgs(4),
		Run: func(cmd *cobra.Command, args []string) {
			intent := &prototype.CommentIntent{
				Author:         args[0],
				ParentAuthor:   args[1],
				ParentPermlink: args[2],
				Body:           args[3],
			}
			res := postsOf(cmd).PublishComment(context.Background(), intent)
			printPublish(cmd.OutOrStdout(), res)
			confirm(cmd, wait, &res.BroadcastResult)
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "wait until the reply is included in a block")
	return cmd
}

var UpdateCmd = func() *cobra.Command {
	var (
		title string
		tags  string
	)
	cmd := &cobra.Command{
		Use:     "update",
		Short:   "edit a post published in the last 7 days",
		Example: "update [author] [permlink] [body] --title \"new title\"",
		Args:    cobra.ExactArgs(3),
		Run: func(cmd *cobra.Command, args []string) {
			intent := &prototype.UpdateIntent{
				Author:   args[0],
				Permlink: args[1],
				Body:     args[2],
				Title:    title,
				Tags:     splitTags(tags),
			}
			printPublish(cmd.OutOrStdout(), postsOf(cmd).UpdatePost(context.Background(), intent))
		},
	}
	cmd.Flags().StringVarP(&title, "title", "", "", "replace the title")
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "replace the tags")
	return cmd
}

var DeleteCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete",
		Short:   "blank out a post published in the last 7 days",
		Example: "delete [author] [permlink]",
		Args:    cobra.ExactArgs(2),
		Run: func(cmd *cobra.Command, args []string) {
			intent := &prototype.DeleteIntent{Author: args[0], Permlink: args[1]}
			printPublish(cmd.OutOrStdout(), postsOf(cmd).DeletePost(context.Background(), intent))
		},
	}
	return cmd
}

var RCCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rc",
		Short:   "check whether an account has enough resource credits to post",
		Example: "rc [account]",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			printJSON(cmd.OutOrStdout(), postsOf(cmd).CanUserPost(context.Background(), args[0]))
		},
	}
	return cmd
}

var RCCostCmd = func() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "rccost",
		Short:   "estimate the resource credit cost of a body",
		Example: "rccost [body_length]",
		Args:    cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			n, err := strconv.Atoi(args[0])
			if err != nil {
				fmt.Fprintln(out, err)
				return
			}
			fmt.Fprintln(out, app.GetEstimatedRCCost(n))
		},
	}
	return cmd
}
