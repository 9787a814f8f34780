// Command gmsm exposes SM3 hashing, SM4 file encryption and the SM2 key
// exchange on the command line.
package main

import (
	"os"

	"github.com/opentoys/gmcrypto/cmd/gmsm/internal/commands"
)

func main() {
	if err := commands.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
