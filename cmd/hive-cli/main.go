package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/coschain/cobra"
	"github.com/coschain/hivebridge/app"
	"github.com/coschain/hivebridge/cmd/hive-cli/commands"
	"github.com/coschain/hivebridge/common"
	"github.com/coschain/hivebridge/config"
	"github.com/coschain/hivebridge/hivesigner"
	"github.com/coschain/hivebridge/mylog"
	"github.com/coschain/hivebridge/prototype"
	"github.com/coschain/hivebridge/rpc"
	"github.com/coschain/hivebridge/utils"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
)

const (
	dataDirEnv     = "HIVEBRIDGE_HOME"
	requestTimeout = 30 * time.Second

	provisionalCacheSize = 1 << 20
	provisionalTTL       = 10 * 60
)

var rootCmd = &cobra.Command{
	Use:   "hive-cli",
	Short: "hive-cli votes, posts and watches the Hive chain",
}

func pcFromCommands(parent readline.PrefixCompleterInterface, c *cobra.Command) {
	pc := readline.PcItem(c.Use)
	parent.SetChildren(append(parent.GetChildren(), pc))
	for _, child := range c.Commands() {
		pcFromCommands(pc, child)
	}
}

func inheritContext(c *cobra.Command) {
	for _, child := range c.Commands() {
		child.Context = c.Context
		inheritContext(child)
	}
}

func runShell() {
	completer := readline.NewPrefixCompleter()
	for _, child := range rootCmd.Commands() {
		pcFromCommands(completer, child)
	}
	shell, err := readline.NewEx(&readline.Config{
		Prompt:       "hive> ",
		AutoComplete: completer,
		EOFPrompt:    "exit",
	})
	if err != nil {
		panic(err)
	}
	defer shell.Close()

shell_loop:
	for {
		l, err := shell.Readline()
		if err != nil {
			break shell_loop
		}
		fields := strings.Fields(l)
		if len(fields) == 0 {
			continue
		}
		if fields[0] == "exit" || fields[0] == "quit" {
			break shell_loop
		}
		cmd, flags, err := rootCmd.Find(fields)
		if err != nil || cmd == rootCmd {
			fmt.Fprintln(os.Stderr, "unknown command:", fields[0])
			continue
		}
		resetFlags(cmd)
		if err := cmd.ParseFlags(flags); err != nil {
			fmt.Fprintln(os.Stderr, err)
			continue
		}
		args := cmd.Flags().Args()
		if cmd.Args != nil {
			if err := cmd.Args(cmd, args); err != nil {
				fmt.Fprintln(os.Stderr, err, "\nexample:", cmd.Example)
				continue
			}
		}
		cmd.Run(cmd, args)
	}
}

// resetFlags undoes the previous shell line's flags.
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		f.Value.Set(f.DefValue)
		f.Changed = false
	})
}

func dataDir() string {
	if dir := os.Getenv(dataDirEnv); dir != "" {
		return dir
	}
	return config.DefaultDataDir()
}

func addCommands() {
	rootCmd.AddCommand(commands.InitCmd())
	rootCmd.AddCommand(commands.VoteCmd())
	rootCmd.AddCommand(commands.UnvoteCmd())
	rootCmd.AddCommand(commands.StarCmd())
	rootCmd.AddCommand(commands.BatchVoteCmd())
	rootCmd.AddCommand(commands.WeightCmd())
	rootCmd.AddCommand(commands.CanVoteCmd())
	rootCmd.AddCommand(commands.CheckVoteCmd())
	rootCmd.AddCommand(commands.SignUrlCmd())
	rootCmd.AddCommand(commands.PostCmd())
	rootCmd.AddCommand(commands.ReplyCmd())
	rootCmd.AddCommand(commands.UpdateCmd())
	rootCmd.AddCommand(commands.DeleteCmd())
	rootCmd.AddCommand(commands.RCCmd())
	rootCmd.AddCommand(commands.RCCostCmd())
	rootCmd.AddCommand(commands.WaitCmd())
	rootCmd.AddCommand(commands.WatchCmd())
}

func init() {
	addCommands()
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		runShell()
	}
}

func clockFor(cfg *config.Config, log *logrus.Logger) utils.Clock {
	if !cfg.UseNTP {
		return utils.SystemClock{}
	}
	c, err := utils.NewNtpClock(utils.DefaultNtpServers, log)
	if err != nil {
		log.Warn("falling back to the system clock: ", err)
		return utils.SystemClock{}
	}
	return c
}

func main() {
	cfg, err := config.Load(dataDir())
	if err != nil {
		common.Fatalf("%v", err)
	}
	logPath := ""
	if cfg.LogPath != "" {
		logPath = cfg.ResolvePath(cfg.LogPath)
	}
	log := mylog.Init(logPath, cfg.LogLevel, uint32(cfg.LogAge))
	log.Out = os.Stderr

	clock := clockFor(cfg, log)
	reader := rpc.Dial(cfg.NodeURL, requestTimeout, log)
	signer := hivesigner.NewClient(cfg.SignerURL, cfg.SignerToken, requestTimeout, log)

	votes := app.NewVoteBroadcaster(signer, reader, clock, log)
	votes.SetProvisionalStore(app.NewProvisionalVotes(provisionalCacheSize, provisionalTTL))

	guard := app.NewResourceCreditGuard(app.NewRCHelper(reader), reader, clock, log)
	posts := app.NewPostBroadcaster(signer, reader, guard, clock, app.PostConfig{
		AppName: cfg.AppName,
		BaseURL: cfg.BaseURL,
		Platform: prototype.BeneficiaryRoute{
			Account: cfg.Platform.Account,
			Weight:  uint16(cfg.Platform.Weight),
		},
	}, log)

	rootCmd.SetContext(commands.CtxConfig, cfg)
	rootCmd.SetContext(commands.CtxLog, log)
	rootCmd.SetContext(commands.CtxReader, reader)
	rootCmd.SetContext(commands.CtxVotes, votes)
	rootCmd.SetContext(commands.CtxPosts, posts)
	rootCmd.SetContext(commands.CtxWaiter, app.NewTrxWaiter(reader, log))

	inheritContext(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
