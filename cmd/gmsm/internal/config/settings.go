// Package config holds the validated settings of the gmsm command.
package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/opentoys/gmcrypto/crypto/ec"
)

// Log level constants
const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// Log format constants
const (
	LogFormatJSON = "json"
	LogFormatText = "text"
)

const DefaultCurve = "sm2-best"

// Settings are the global flags shared by every sub-command.
type Settings struct {
	LogLevel  string `validate:"required,oneof=debug info warn error"`
	LogFormat string `validate:"required,oneof=json text"`
	Curve     string `validate:"required,curve"`
}

// SM4Settings are the options of sm4 encrypt and decrypt.
type SM4Settings struct {
	In         string `validate:"required"`
	Out        string `validate:"required"`
	Mode       string `validate:"omitempty,oneof=ecb cbc cfb ofb ctr"`
	Padding    string `validate:"required,oneof=pkcs7 ansix923 iso97971 none"`
	Iterations int    `validate:"gte=1000"`
}

// ExchangeSettings are the options of sm2 exchange.
type ExchangeSettings struct {
	UIDA     string `validate:"max=8191"`
	UIDB     string `validate:"max=8191"`
	KeyLen   int    `validate:"gte=1,lte=4096"`
	Attempts uint   `validate:"gte=1,lte=100"`
}

func Default() Settings {
	return Settings{
		LogLevel:  LogLevelInfo,
		LogFormat: LogFormatJSON,
		Curve:     DefaultCurve,
	}
}

func newValidator() (*validator.Validate, error) {
	validate := validator.New()
	err := validate.RegisterValidation("curve", func(fl validator.FieldLevel) bool {
		_, err := ec.ByName(fl.Field().String())
		return err == nil
	})
	if err != nil {
		return nil, err
	}
	return validate, nil
}

func validateStruct(name string, s any) error {
	validate, err := newValidator()
	if err != nil {
		return err
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("validation failed for %s: %w", name, err)
	}
	return nil
}

// Validate checks that all fields in Settings are valid
func (s *Settings) Validate() error {
	return validateStruct("Settings", s)
}

func (s *SM4Settings) Validate() error {
	return validateStruct("SM4Settings", s)
}

func (s *ExchangeSettings) Validate() error {
	return validateStruct("ExchangeSettings", s)
}
