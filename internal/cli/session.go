package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/txsweep/internal/artifact"
	"github.com/wesleyorama2/txsweep/internal/config"
	"github.com/wesleyorama2/txsweep/internal/ctxlog"
	"github.com/wesleyorama2/txsweep/internal/engineconf"
	"github.com/wesleyorama2/txsweep/internal/experiment"
	"github.com/wesleyorama2/txsweep/internal/journal"
	"github.com/wesleyorama2/txsweep/internal/output"
	"github.com/wesleyorama2/txsweep/internal/reconcile"
	"github.com/wesleyorama2/txsweep/internal/runner"
)

// session is what every subcommand derives from flags and configuration.
type session struct {
	ctx     context.Context
	cfg     *config.Config
	store   *artifact.Store
	codec   experiment.Codec
	console *output.Console
}

// newSession loads the configuration named by --config (or the defaults),
// applies flag overrides and sets up logging and the result store.
func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Flags()
	configFile, _ := flags.GetString("config")
	noColor, _ := flags.GetBool("no-color")

	cfg := config.Default()
	if configFile != "" {
		loaded, err := config.LoadConfig(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	overrides := []struct {
		flag string
		dst  *string
	}{
		{"results-dir", &cfg.Results.Dir},
		{"log-level", &cfg.Logging.Level},
		{"log-format", &cfg.Logging.Format},
	}
	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst, _ = flags.GetString(o.flag)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := ctxlog.New(cfg.Logging.Level, cfg.Logging.Format, cmd.ErrOrStderr())
	logger.Debug("configuration loaded", "file", configFile, "results", cfg.Results.Dir, "engine", cfg.Engine.Dir)

	return &session{
		ctx:     ctxlog.WithLogger(ctx, logger),
		cfg:     cfg,
		store:   artifact.NewStore(cfg.Results.Dir),
		codec:   cfg.Codec(),
		console: output.NewConsole(output.ConsoleConfig{Writer: cmd.OutOrStdout(), NoColor: noColor}),
	}, nil
}

// experiments enumerates the configured matrix.
func (s *session) experiments() []experiment.Experiment {
	return s.cfg.ExperimentMatrix().All()
}

// reconcile quarantines artifacts that exps no longer produce.
func (s *session) reconcile(exps []experiment.Experiment, dryRun bool) (*reconcile.Report, error) {
	valid := reconcile.ValidSet(s.codec, exps)
	return reconcile.Reconcile(s.ctx, s.store, s.codec, valid, reconcile.Options{DryRun: dryRun})
}

// newRunner parses the configuration template and wires the configured
// commands, the store and the journal into a runner.
func (s *session) newRunner() (*runner.Runner, error) {
	tmpl, err := engineconf.Load(s.cfg.TemplatePath())
	if err != nil {
		return nil, err
	}

	j := journal.Open(s.cfg.JournalPath())
	ctxlog.FromContext(s.ctx).Info("sweep session", "run", j.Run(), "journal", j.Path())

	cmds := s.cfg.Commands
	return runner.New(runner.Config{
		Toolchain: &runner.Commands{
			Dir:           s.cfg.Engine.Dir,
			CleanArgv:     cmds.Clean,
			BuildArgv:     cmds.Build,
			RunArgv:       cmds.Run,
			SyncArgv:      cmds.Sync,
			HugepagesArgv: cmds.Hugepages,
		},
		Store:         s.store,
		Journal:       j,
		Console:       s.console,
		Template:      tmpl,
		ConfigPath:    s.cfg.OutputPath(),
		LargePages:    s.cfg.LargePages(),
		SyncRepeat:    s.cfg.SyncCount(),
		SettleDelay:   s.cfg.SettleDuration(),
		SuccessMarker: s.cfg.SuccessMarker,
	}), nil
}
