package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/opentoys/gmcrypto/cmd/gmsm/internal/config"
	"github.com/opentoys/gmcrypto/crypto/ec"
	"github.com/opentoys/gmcrypto/logx"
)

// Env is shared by all command handlers. It is filled from the persistent
// flags before any sub-command runs.
type Env struct {
	Settings config.Settings
	Logger   *slog.Logger
	Curve    ec.Curve
}

// Setup validates the settings, then builds the logger writing to w and
// resolves the curve.
func (e *Env) Setup(w io.Writer) error {
	if err := e.Settings.Validate(); err != nil {
		return err
	}
	level, err := logx.ParseLevel(e.Settings.LogLevel)
	if err != nil {
		return err
	}

	switch e.Settings.LogFormat {
	case config.LogFormatText:
		e.Logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	default:
		e.Logger = logx.NewLogger(w, logx.WithLevel(level), logx.WithRedact("key", "password", "private_key"))
	}

	e.Curve, err = ec.ByName(e.Settings.Curve)
	if err != nil {
		return fmt.Errorf("failed to resolve curve: %w", err)
	}
	return nil
}

// NewRootCommand builds the gmsm command tree.
func NewRootCommand() *cobra.Command {
	env := &Env{Settings: config.Default()}

	rootCmd := &cobra.Command{
		Use:   "gmsm",
		Short: "ShangMi SM2/SM3/SM4 command-line tool",
		Long: `gmsm computes SM3 digests, encrypts and decrypts files with SM4 and
generates SM2 keys and runs the SM2 key exchange locally.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return env.Setup(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&env.Settings.LogLevel, "log-level", env.Settings.LogLevel, "Log level: debug, info, warn or error")
	flags.StringVar(&env.Settings.LogFormat, "log-format", env.Settings.LogFormat, "Log format: json or text")
	flags.StringVar(&env.Settings.Curve, "curve", env.Settings.Curve, fmt.Sprintf("Curve name, one of %v", ec.Names()))

	InitSM3Commands(rootCmd, env)
	InitSM4Commands(rootCmd, env)
	InitSM2Commands(rootCmd, env)
	return rootCmd
}
