package main

import (
	"github.com/Netflix/go-env"
)

// Settings are read from the environment and become flag defaults
type Settings struct {
	ServerURL   string `env:"PB_SERVER_URL,default=http://127.0.0.1:8090"`
	Token       string `env:"PB_TOKEN"`
	LogEncoding string `env:"PB_LOG_ENCODING,default=console"`
	DevSecret   string `env:"PB_DEV_SECRET,default=pbrealtime-dev-secret-change-me"`
	DevPort     int    `env:"PB_DEV_PORT,default=8090"`
}

func loadSettings() (Settings, error) {
	var settings Settings
	_, err := env.UnmarshalFromEnviron(&settings)
	return settings, err
}
