package database

import "time"

type Config struct {
	// FileName of the bbolt file. Empty disables the run registry.
	FileName string `envconfig:"DTS_REGISTRY_PATH"`
	// OpenTimeout bounds the wait for the file lock held by another process.
	OpenTimeout time.Duration `envconfig:"DTS_REGISTRY_OPEN_TIMEOUT" default:"5s"`
}

func (c Config) Enabled() bool {
	return c.FileName != ""
}
