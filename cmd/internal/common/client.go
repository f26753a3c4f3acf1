package common

import (
	"fmt"

	"github.com/caarlos0/env/v10"

	"github.com/dsh2dsh/fecfile/client"
)

func NewClient() (*client.Client, error) {
	cfg := struct {
		UA string `env:"FEC_UA,notEmpty"`
	}{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse fecfile envs: %w", err)
	}
	return client.New().WithUserAgent(cfg.UA), nil
}
