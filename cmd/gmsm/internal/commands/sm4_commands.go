package commands

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/pbkdf2"

	"github.com/opentoys/gmcrypto/cmd/gmsm/internal/config"
	"github.com/opentoys/gmcrypto/crypto/sm3"
	"github.com/opentoys/gmcrypto/crypto/sm4"
)

const saltSize = 16

// SM4CommandHandler encrypts and decrypts files with SM4.
type SM4CommandHandler struct {
	env *Env
}

type sm4Request struct {
	settings config.SM4Settings
	key      []byte
	salt     []byte
	opts     []sm4.Option
}

// parse reads the flags shared by encrypt and decrypt. A password without a
// salt gets a fresh random salt when encrypting.
func (h *SM4CommandHandler) parse(cmd *cobra.Command, encrypt bool) (*sm4Request, error) {
	var req sm4Request
	flags := cmd.Flags()
	var err error
	if req.settings.In, err = flags.GetString("in"); err != nil {
		return nil, err
	}
	if req.settings.Out, err = flags.GetString("out"); err != nil {
		return nil, err
	}
	if req.settings.Mode, err = flags.GetString("mode"); err != nil {
		return nil, err
	}
	if req.settings.Padding, err = flags.GetString("padding"); err != nil {
		return nil, err
	}
	if req.settings.Iterations, err = flags.GetInt("iterations"); err != nil {
		return nil, err
	}
	if err := req.settings.Validate(); err != nil {
		return nil, err
	}

	keyHex, _ := flags.GetString("key-hex")
	password, _ := flags.GetString("password")
	saltHex, _ := flags.GetString("salt-hex")
	ivHex, _ := flags.GetString("iv-hex")

	switch {
	case keyHex != "":
		if req.key, err = hex.DecodeString(keyHex); err != nil {
			return nil, fmt.Errorf("invalid key-hex flag: %w", err)
		}
	case password != "":
		if saltHex != "" {
			if req.salt, err = hex.DecodeString(saltHex); err != nil {
				return nil, fmt.Errorf("invalid salt-hex flag: %w", err)
			}
		} else if encrypt {
			req.salt = make([]byte, saltSize)
			if _, err := rand.Read(req.salt); err != nil {
				return nil, err
			}
		} else {
			return nil, fmt.Errorf("salt-hex is required to decrypt with a password")
		}
		req.key = pbkdf2.Key([]byte(password), req.salt, req.settings.Iterations, sm4.KeySize, sm3.New)
	}

	if ivHex != "" {
		iv, err := hex.DecodeString(ivHex)
		if err != nil {
			return nil, fmt.Errorf("invalid iv-hex flag: %w", err)
		}
		req.opts = append(req.opts, sm4.WithIV(iv))
	}
	if req.settings.Mode != "" {
		mode, err := sm4.ParseMode(req.settings.Mode)
		if err != nil {
			return nil, err
		}
		req.opts = append(req.opts, sm4.WithMode(mode))
	}
	padding, err := sm4.ParsePadding(req.settings.Padding)
	if err != nil {
		return nil, err
	}
	req.opts = append(req.opts, sm4.WithPadding(padding))
	return &req, nil
}

func (h *SM4CommandHandler) run(cmd *cobra.Command, encrypt bool) error {
	req, err := h.parse(cmd, encrypt)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(filepath.Clean(req.settings.In))
	if err != nil {
		return err
	}

	c := sm4.NewWithPool(req.key, req.opts...)
	defer c.Release()
	op := "decrypt"
	if encrypt {
		op = "encrypt"
		c.Encrypt(data)
	} else {
		c.Decrypt(data)
	}
	if c.Error != nil {
		h.env.Logger.Error("sm4 "+op+" failed", "in", req.settings.In, "err", c.Error)
		return c.Error
	}

	if err := os.WriteFile(req.settings.Out, c.Bytes(), 0600); err != nil {
		return err
	}
	if req.salt != nil && encrypt {
		fmt.Fprintf(cmd.OutOrStdout(), "salt: %x\n", req.salt)
	}
	h.env.Logger.Info("sm4 "+op+" done",
		"in", req.settings.In,
		"out", req.settings.Out,
		"bytes", len(c.Bytes()),
		"pbkdf2", req.salt != nil,
	)
	return nil
}

// EncryptCmd encrypts the input file into the output file.
func (h *SM4CommandHandler) EncryptCmd(cmd *cobra.Command, _ []string) error {
	return h.run(cmd, true)
}

// DecryptCmd decrypts the input file into the output file.
func (h *SM4CommandHandler) DecryptCmd(cmd *cobra.Command, _ []string) error {
	return h.run(cmd, false)
}

// InitSM4Commands registers the sm4 encrypt and decrypt commands.
func InitSM4Commands(rootCmd *cobra.Command, env *Env) {
	handler := &SM4CommandHandler{env: env}

	sm4Cmd := &cobra.Command{
		Use:   "sm4",
		Short: "Encrypt and decrypt files with SM4",
	}

	encryptCmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a file",
		RunE:  handler.EncryptCmd,
	}
	decryptCmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt a file",
		RunE:  handler.DecryptCmd,
	}

	for _, c := range []*cobra.Command{encryptCmd, decryptCmd} {
		c.Flags().String("in", "", "Input file path")
		c.Flags().String("out", "", "Output file path")
		c.Flags().String("key-hex", "", "16 byte key, hex encoded")
		c.Flags().String("password", "", "Password, stretched with PBKDF2-HMAC-SM3")
		c.Flags().String("salt-hex", "", "PBKDF2 salt, hex encoded")
		c.Flags().Int("iterations", 10000, "PBKDF2 iterations")
		c.Flags().String("iv-hex", "", "16 byte IV, hex encoded; selects CBC unless --mode is given")
		c.Flags().String("mode", "", "Block mode: ecb, cbc, cfb, ofb or ctr")
		c.Flags().String("padding", sm4.Pkcs7.String(), "Padding: pkcs7, ansix923, iso97971 or none")
		_ = c.MarkFlagRequired("in")
		_ = c.MarkFlagRequired("out")
		c.MarkFlagsMutuallyExclusive("key-hex", "password")
		c.MarkFlagsOneRequired("key-hex", "password")
		sm4Cmd.AddCommand(c)
	}

	rootCmd.AddCommand(sm4Cmd)
}
