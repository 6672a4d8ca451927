package main

import (
	"github.com/larsks/devicesim/internal/cli"
	"github.com/larsks/devicesim/internal/devicectl"
	_ "github.com/larsks/devicesim/internal/logsetup"
)

func main() {
	cli.SubCommandMain(
		func() cli.Configurable { return devicectl.NewConfig() },
		devicectl.NewHandler(),
	)
}
