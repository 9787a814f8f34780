package commands

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/opentoys/gmcrypto/crypto/sm3"
	"github.com/opentoys/gmcrypto/gopool"
)

// SM3CommandHandler hashes files with SM3.
type SM3CommandHandler struct {
	env *Env
}

// HashCmd prints the SM3 digest of every file argument, or of stdin when
// there are none, in argument order.
func (h *SM3CommandHandler) HashCmd(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if len(args) == 0 {
		sum, err := hashReader(cmd.InOrStdin())
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  -\n", sum)
		return nil
	}

	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("invalid jobs flag: %w", err)
	}

	sums := make([]string, len(args))
	fns := make([]func() error, len(args))
	for i, name := range args {
		fns[i] = func() error {
			f, err := os.Open(filepath.Clean(name))
			if err != nil {
				return err
			}
			defer f.Close()
			sums[i], err = hashReader(f)
			if err != nil {
				return fmt.Errorf("%s: %w", name, err)
			}
			return nil
		}
	}
	if err := gopool.AllWithLimit(jobs, fns...); err != nil {
		h.env.Logger.Error("sm3 hashing failed", "err", err)
		return err
	}

	for i, name := range args {
		fmt.Fprintf(out, "%s  %s\n", sums[i], name)
	}
	h.env.Logger.Debug("sm3 hashed files", "count", len(args), "jobs", jobs)
	return nil
}

func hashReader(r io.Reader) (string, error) {
	h := sm3.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// InitSM3Commands registers the sm3 command.
func InitSM3Commands(rootCmd *cobra.Command, env *Env) {
	handler := &SM3CommandHandler{env: env}

	cmd := &cobra.Command{
		Use:   "sm3 [files...]",
		Short: "Print SM3 digests of files or stdin",
		RunE:  handler.HashCmd,
	}
	cmd.Flags().Int("jobs", runtime.NumCPU(), "Maximum number of files hashed concurrently")
	rootCmd.AddCommand(cmd)
}
