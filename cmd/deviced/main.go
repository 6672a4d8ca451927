package main

import (
	"github.com/larsks/devicesim/internal/api"
	"github.com/larsks/devicesim/internal/cli"
	_ "github.com/larsks/devicesim/internal/logsetup"
)

func main() {
	cli.StandardMain(
		func() cli.Configurable { return api.NewConfig() },
		api.NewAPIHandler(),
	)
}
