package commands

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/opentoys/gmcrypto/cmd/gmsm/internal/config"
	"github.com/opentoys/gmcrypto/crypto/sm2"
	"github.com/opentoys/gmcrypto/gopool"
)

// SM2CommandHandler generates SM2 keys and runs the key exchange.
type SM2CommandHandler struct {
	env *Env
}

// KeygenCmd prints a new key pair, or writes it to UUID-prefixed files when
// --out-dir is set.
func (h *SM2CommandHandler) KeygenCmd(cmd *cobra.Command, _ []string) error {
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return fmt.Errorf("invalid out-dir flag: %w", err)
	}

	key, err := sm2.GenerateKey(h.env.Curve, rand.Reader)
	if err != nil {
		return err
	}
	priv := hex.EncodeToString(key.Bytes())
	pub := hex.EncodeToString(key.Public().Bytes())

	out := cmd.OutOrStdout()
	if outDir == "" {
		fmt.Fprintf(out, "private: %s\npublic: %s\n", priv, pub)
		return nil
	}

	id := uuid.New()
	privPath := filepath.Join(outDir, fmt.Sprintf("%s-sm2-private-key.hex", id))
	pubPath := filepath.Join(outDir, fmt.Sprintf("%s-sm2-public-key.hex", id))
	if err := os.WriteFile(privPath, []byte(priv+"\n"), 0600); err != nil {
		return err
	}
	if err := os.WriteFile(pubPath, []byte(pub+"\n"), 0600); err != nil {
		return err
	}
	fmt.Fprintf(out, "%s\n%s\n", privPath, pubPath)
	h.env.Logger.Info("sm2 key pair saved", "private", privPath, "public", pubPath, "curve", h.env.Settings.Curve)
	return nil
}

// ExchangeCmd runs both roles of the key exchange in process and prints the
// agreed key. A shared point at infinity is retried with fresh ephemerals.
func (h *SM2CommandHandler) ExchangeCmd(cmd *cobra.Command, _ []string) error {
	var s config.ExchangeSettings
	var err error
	flags := cmd.Flags()
	if s.UIDA, err = flags.GetString("uid-a"); err != nil {
		return err
	}
	if s.UIDB, err = flags.GetString("uid-b"); err != nil {
		return err
	}
	if s.KeyLen, err = flags.GetInt("key-len"); err != nil {
		return err
	}
	if s.Attempts, err = flags.GetUint("attempts"); err != nil {
		return err
	}
	if err := s.Validate(); err != nil {
		return err
	}

	a, err := h.party(flags.Lookup("key-a").Value.String(), s.UIDA)
	if err != nil {
		return fmt.Errorf("party A: %w", err)
	}
	b, err := h.party(flags.Lookup("key-b").Value.String(), s.UIDB)
	if err != nil {
		return fmt.Errorf("party B: %w", err)
	}

	key, err := gopool.RetryWithData(func() ([]byte, error) {
		return h.exchange(a, b, []byte(s.UIDA), []byte(s.UIDB), s.KeyLen)
	},
		gopool.RetryAttempts(s.Attempts),
		gopool.RetryIf(func(err error) bool { return errors.Is(err, sm2.ErrInfinity) }),
		gopool.OnRetry(func(n uint, err error) {
			h.env.Logger.Warn("sm2 exchange retry", "attempt", n, "err", err)
		}),
	)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "key: %x\n", key)
	return nil
}

func (h *SM2CommandHandler) party(keyHex, uid string) (*sm2.Party, error) {
	var key *sm2.PrivateKey
	var err error
	if keyHex == "" {
		key, err = sm2.GenerateKey(h.env.Curve, rand.Reader)
	} else {
		var raw []byte
		if raw, err = hex.DecodeString(keyHex); err != nil {
			return nil, err
		}
		key, err = sm2.NewPrivateKey(h.env.Curve, raw)
	}
	if err != nil {
		return nil, err
	}
	return sm2.NewParty(key, []byte(uid))
}

func (h *SM2CommandHandler) exchange(a, b *sm2.Party, uidA, uidB []byte, keyLen int) ([]byte, error) {
	ini, err := sm2.NewInitiator(a, b.PublicKey(), keyLen, sm2.WithLogger(h.env.Logger), sm2.WithPeerUID(uidB))
	if err != nil {
		return nil, err
	}
	defer ini.Destroy()
	res, err := sm2.NewResponder(b, a.PublicKey(), keyLen, sm2.WithLogger(h.env.Logger), sm2.WithPeerUID(uidA))
	if err != nil {
		return nil, err
	}
	defer res.Destroy()

	hello, err := ini.Start(rand.Reader)
	if err != nil {
		return nil, err
	}
	reply, err := res.Respond(rand.Reader, hello)
	if err != nil {
		return nil, err
	}
	keyA, confirm, err := ini.Finish(reply)
	if err != nil {
		return nil, err
	}
	keyB, err := res.Confirm(confirm)
	if err != nil {
		return nil, err
	}
	if !bytes.Equal(keyA, keyB) {
		return nil, gopool.Unrecoverable(errors.New("sm2 exchange: parties derived different keys"))
	}
	return keyA, nil
}

// InitSM2Commands registers the sm2 keygen and exchange commands.
func InitSM2Commands(rootCmd *cobra.Command, env *Env) {
	handler := &SM2CommandHandler{env: env}

	sm2Cmd := &cobra.Command{
		Use:   "sm2",
		Short: "SM2 key generation and key exchange",
	}

	keygenCmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an SM2 key pair",
		RunE:  handler.KeygenCmd,
	}
	keygenCmd.Flags().String("out-dir", "", "Directory for the key files; print to stdout when empty")

	exchangeCmd := &cobra.Command{
		Use:   "exchange",
		Short: "Run the SM2 key exchange between two local parties",
		RunE:  handler.ExchangeCmd,
	}
	exchangeCmd.Flags().String("uid-a", string(sm2.DefaultUID), "Identity of the initiator")
	exchangeCmd.Flags().String("uid-b", string(sm2.DefaultUID), "Identity of the responder")
	exchangeCmd.Flags().String("key-a", "", "Initiator private key, hex; generated when empty")
	exchangeCmd.Flags().String("key-b", "", "Responder private key, hex; generated when empty")
	exchangeCmd.Flags().Int("key-len", 16, "Length of the derived key in bytes")
	exchangeCmd.Flags().Uint("attempts", 3, "Attempts when the shared point is infinity")

	sm2Cmd.AddCommand(keygenCmd, exchangeCmd)
	rootCmd.AddCommand(sm2Cmd)
}
