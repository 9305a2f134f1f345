package furi

import (
	"testing"

	"furi/kernel"
)

func newHost(t *testing.T) *kernel.Host {
	t.Helper()
	return newHostWith(t, kernel.DefaultConfig())
}

func newHostWith(t *testing.T, cfg kernel.Config) *kernel.Host {
	t.Helper()
	return kernel.New(cfg)
}
