package internal

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type Config struct {
	Host            string        `env:"HOST,required=true" validate:"required"`
	Port            int           `env:"PORT,required=true" validate:"gt=0,lte=65535"`
	JWTSecret       string        `env:"JWT_SECRET,required=true" validate:"required,min=32"`
	BadgerFilepath  string        `env:"BADGER_FILEPATH,required=true" validate:"required"`
	LogLevel        string        `env:"LOG_LEVEL,required=true" validate:"oneof=DEBUG INFO WARN ERROR"`
	WriteWait       time.Duration `env:"WRITE_WAIT,required=true" validate:"gt=0"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,required=true" validate:"gt=0"`
}

// Validate enforces the constraints the env tags cannot express,
// notably the minimum secret length.
func (c Config) Validate() error {
	return validate.Struct(c)
}
