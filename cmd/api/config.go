package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	Addr        string `env:"ADDR" envDefault:":8080"`
	// JWTSecret enables bearer-token protection on the fulfillment endpoints
	// when non-empty.
	JWTSecret string `env:"JWT_SECRET"`
}

func loadConfig() (config, error) {
	var cfg config
	if err := env.Parse(&cfg); err != nil {
		return config{}, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}
