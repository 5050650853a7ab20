package commands

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/coschain/cobra"
	"github.com/coschain/hivebridge/common/pprof"
	"github.com/coschain/hivebridge/config"
	"github.com/coschain/hivebridge/iservices"
	"github.com/coschain/hivebridge/monitor"
	"github.com/coschain/hivebridge/myhttp"
	"github.com/coschain/hivebridge/node"
	"github.com/coschain/hivebridge/prototype"
	"github.com/coschain/hivebridge/stream"
	"github.com/mgutz/ansi"
	"github.com/sirupsen/logrus"
)

const watchNodeName = "watch"

var (
	postColor    = ansi.ColorFunc("green")
	voteColor    = ansi.ColorFunc("yellow")
	commentColor = ansi.ColorFunc("magenta")
)

var WatchCmd = func() *cobra.Command {
	var (
		tags    string
		account string
		history bool
		listen  string
	)
	cmd := &cobra.Command{
		Use:     "watch",
		Short:   "print new posts, votes and comments as they reach the chain",
		Example: "watch --tags hive,dev --account alice --history",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := *configOf(cmd)
			if cmd.Flags().Changed("listen") {
				cfg.Relay.Listen = listen
			}
			opts := monitor.Options{
				Tags:           splitTags(tags),
				Account:        account,
				ProcessHistory: history,
				HistoryBlocks:  historyBlocks(cfg.Stream.HistoryBlocks),
			}
			out := cmd.OutOrStdout()
			n, err := NewWatchNode(&cfg, readerOf(cmd), logOf(cmd), opts, func(ev prototype.ChainEvent) {
				printEvent(out, ev)
			})
			if err != nil {
				fmt.Fprintln(out, err)
				return
			}
			if err := n.Start(); err != nil {
				fmt.Fprintln(out, failColor("start failed:"), err)
				return
			}
			n.Wait()
		},
	}
	cmd.Flags().StringVarP(&tags, "tags", "t", "", "only report posts with these comma separated tags")
	cmd.Flags().StringVarP(&account, "account", "a", "", "only report replies to this account")
	cmd.Flags().BoolVarP(&history, "history", "", false, "replay recent blocks before following the chain")
	cmd.Flags().StringVarP(&listen, "listen", "", "", "relay events over HTTP on this address, empty disables")
	return cmd
}

// NewWatchNode assembles the stream session, the monitor and, when their
// listen addresses are set, the HTTP relay and the profiler. Services stop in
// reverse order, so the session always outlives its subscribers.
func NewWatchNode(cfg *config.Config, reader iservices.INodeReader, log *logrus.Logger,
	opts monitor.Options, cb monitor.Callback) (*node.Node, error) {
	n, err := node.New(&node.Config{Name: watchNodeName, DataDir: cfg.DataDir}, log)
	if err != nil {
		return nil, err
	}

	n.Register(stream.ServiceName, func(ctx *node.ServiceContext) (node.Service, error) {
		cursor := ""
		if cfg.Stream.CursorPath != "" {
			cursor = ctx.ResolvePath(cfg.Stream.CursorPath)
		}
		session, err := stream.NewSession(reader, stream.Config{
			PollInterval: time.Duration(cfg.Stream.PollIntervalMs) * time.Millisecond,
			Irreversible: cfg.Stream.Irreversible,
			CursorPath:   cursor,
		}, ctx.Log)
		if err != nil {
			return nil, err
		}
		return stream.NewService(session), nil
	})

	n.Register(monitor.ServiceName, func(ctx *node.ServiceContext) (node.Service, error) {
		s, err := ctx.Service(stream.ServiceName)
		if err != nil {
			return nil, err
		}
		m := monitor.New(s.(*stream.Service).Session(), ctx.Log)
		if cb != nil {
			m.AddCallback(cb)
		}
		return monitor.NewService(m, opts), nil
	})

	if cfg.Relay.Listen != "" {
		n.Register(myhttp.ServiceName, func(ctx *node.ServiceContext) (node.Service, error) {
			s, err := ctx.Service(monitor.ServiceName)
			if err != nil {
				return nil, err
			}
			return myhttp.NewRelay(cfg.Relay.Listen, s.(*monitor.Service).Monitor(), ctx.Log), nil
		})
	}
	if cfg.PprofListen != "" {
		n.Register(pprof.ServiceName, func(ctx *node.ServiceContext) (node.Service, error) {
			return pprof.New(cfg.PprofListen, ctx.Log), nil
		})
	}
	return n, nil
}

// historyBlocks maps the configured replay depth onto the session's range.
func historyBlocks(n int) uint32 {
	switch {
	case n <= 0:
		return stream.DefaultHistoryBlocks
	case n > stream.MaxHistoryBlocks:
		return stream.MaxHistoryBlocks
	}
	return uint32(n)
}

func printEvent(out io.Writer, ev prototype.ChainEvent) {
	h := ev.Header()
	at := fmt.Sprintf("#%d", h.BlockNum)
	switch e := ev.(type) {
	case *prototype.NewPostEvent:
		fmt.Fprintln(out, dimColor(at), postColor("post"), fmt.Sprintf("@%s/%s %q [%s]",
			h.Author, h.Permlink, e.Title, strings.Join(e.Tags, ",")))
	case *prototype.NewVoteEvent:
		fmt.Fprintln(out, dimColor(at), voteColor("vote"), fmt.Sprintf("%s -> @%s/%s %.2f%%",
			e.Voter, h.Author, h.Permlink, prototype.BasisPointsToPercent(e.Weight)))
	case *prototype.NewCommentEvent:
		fmt.Fprintln(out, dimColor(at), commentColor("comment"), fmt.Sprintf("@%s/%s on @%s/%s",
			h.Author, h.Permlink, e.ParentAuthor, e.ParentPermlink))
	}
}
