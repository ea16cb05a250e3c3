package main

import (
	"context"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/zhouzirui/edupal/backend/internal/config"
	"github.com/zhouzirui/edupal/backend/internal/logging"
	"github.com/zhouzirui/edupal/backend/internal/model/role"
	"github.com/zhouzirui/edupal/backend/internal/service/conversation"
	"github.com/zhouzirui/edupal/backend/internal/service/responder"
)

type options struct {
	role    string
	name    string
	delay   time.Duration
	seed    uint64
	catalog string
	verbose bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "chatcli",
		Short: "Chat with the EduPal assistant from a terminal",
		Long: "chatcli runs one conversation session locally. Type a message to send it,\n" +
			"or use /role [name], /suggest, /<n>, /history and /quit.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.role, "role", string(role.Student), "role to chat as (student, teacher, admin)")
	cmd.Flags().StringVar(&opts.name, "name", "", "display name of the user")
	cmd.Flags().DurationVar(&opts.delay, "delay", conversation.DefaultResponseDelay, "simulated assistant response delay")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 0, "seed for reply selection; 0 picks randomly")
	cmd.Flags().StringVar(&opts.catalog, "catalog", "", "YAML file overriding the role catalog")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "log session internals to stderr")

	return cmd
}

func run(ctx context.Context, opts *options, cmd *cobra.Command) error {
	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logging.SetupWriter(config.LogConfig{Level: level, Pretty: true}, cmd.ErrOrStderr())

	if opts.delay <= 0 {
		return errors.Errorf("delay must be positive, got %s", opts.delay)
	}

	catalog := role.DefaultCatalog()
	if opts.catalog != "" {
		loaded, err := role.LoadCatalog(opts.catalog)
		if err != nil {
			return errors.Wrap(err, "load catalog")
		}
		catalog = loaded
	}

	var respOpts []responder.Option
	if opts.seed != 0 {
		respOpts = append(respOpts, responder.WithSource(rand.New(rand.NewPCG(opts.seed, opts.seed))))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	resp, err := responder.New(ctx, catalog, respOpts...)
	if err != nil {
		return errors.Wrap(err, "build responder")
	}

	session := conversation.New(resp, conversation.Options{
		Role:          role.Parse(opts.role),
		UserName:      opts.name,
		ResponseDelay: opts.delay,
	})
	log.Debug().Str("session_id", session.ID()).Str("role", opts.role).Msg("session started")

	return newREPL(session, resp, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
}
