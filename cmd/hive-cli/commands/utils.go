package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coschain/cobra"
	"github.com/coschain/hivebridge/app"
	"github.com/coschain/hivebridge/config"
	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/prototype"
	"github.com/mgutz/ansi"
	"github.com/sirupsen/logrus"
)

// Keys of the values main puts into every command's Context.
const (
	CtxConfig = "config"
	CtxLog    = "log"
	CtxReader = "reader"
	CtxVotes  = "votes"
	CtxPosts  = "posts"
	CtxWaiter = "waiter"
)

var (
	okColor   = ansi.ColorFunc("green+b")
	failColor = ansi.ColorFunc("red+b")
	dimColor  = ansi.ColorFunc("cyan")
)

func votesOf(cmd *cobra.Command) *app.VoteBroadcaster {
	return cmd.Context[CtxVotes].(*app.VoteBroadcaster)
}

func postsOf(cmd *cobra.Command) *app.PostBroadcaster {
	return cmd.Context[CtxPosts].(*app.PostBroadcaster)
}

func waiterOf(cmd *cobra.Command) *app.TrxWaiter {
	return cmd.Context[CtxWaiter].(*app.TrxWaiter)
}

func readerOf(cmd *cobra.Command) iservices.INodeReader {
	return cmd.Context[CtxReader].(iservices.INodeReader)
}

func configOf(cmd *cobra.Command) *config.Config {
	if c, ok := cmd.Context[CtxConfig].(*config.Config); ok {
		return c
	}
	cfg := config.DefaultConfig
	return &cfg
}

func logOf(cmd *cobra.Command) *logrus.Logger {
	if l, ok := cmd.Context[CtxLog].(*logrus.Logger); ok {
		return l
	}
	return logrus.StandardLogger()
}

func pollerOf(cmd *cobra.Command) app.PollerConfig {
	cfg := configOf(cmd)
	p := app.DefaultPollerConfig()
	if cfg.Poller.TimeoutMs > 0 {
		p.Timeout = time.Duration(cfg.Poller.TimeoutMs) * time.Millisecond
	}
	if cfg.Poller.IntervalMs > 0 {
		p.Interval = time.Duration(cfg.Poller.IntervalMs) * time.Millisecond
	}
	return p
}

func printJSON(out io.Writer, v interface{}) {
	buf, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(out, err)
		return
	}
	fmt.Fprintln(out, string(buf))
}

func printBroadcast(out io.Writer, res *prototype.BroadcastResult) {
	if res.Success {
		fmt.Fprintln(out, okColor("OK"), res.TransactionId)
		return
	}
	fmt.Fprintln(out, failColor("FAILED"), fmt.Sprintf("[%s] %s", res.Kind, res.Error))
}

func printPublish(out io.Writer, res *prototype.PublishResult) {
	printBroadcast(out, &res.BroadcastResult)
	for _, e := range res.Errors {
		fmt.Fprintln(out, "  -", e)
	}
	if res.Success && res.Url != "" {
		fmt.Fprintln(out, dimColor(res.Url))
	}
}

// confirm blocks until a successful broadcast is included, when asked to.
func confirm(cmd *cobra.Command, wait bool, res *prototype.BroadcastResult) {
	if !wait || !res.Success {
		return
	}
	out := cmd.OutOrStdout()
	conf, err := app.ConfirmBroadcast(context.Background(), waiterOf(cmd), res, pollerOf(cmd))
	if err != nil {
		fmt.Fprintln(out, failColor("UNCONFIRMED"), err)
		return
	}
	printConfirmation(out, conf)
}

func printConfirmation(out io.Writer, conf *prototype.ConfirmationResult) {
	switch {
	case conf.Confirmed:
		fmt.Fprintln(out, okColor("CONFIRMED"), fmt.Sprintf("block %d", conf.BlockNum))
	case conf.TimedOut:
		fmt.Fprintln(out, failColor("TIMED OUT"), fmt.Sprintf("[%s]", conf.Kind))
	default:
		fmt.Fprintln(out, failColor("UNCONFIRMED"))
	}
}

func splitTags(s string) []string {
	if s == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}
