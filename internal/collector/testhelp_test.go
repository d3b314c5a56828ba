package collector

import "github.com/qepting91/buzzscope/internal/config"

func configWithMode(mode string) config.Config {
	cfg := config.Load()
	cfg.CollectorMode = mode
	return cfg
}
