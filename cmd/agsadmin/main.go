package main

import (
	"os"

	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/internal/cli/command"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/config"
	"github.com/arcpy/AdministeringArcGISServerwithPython-DS2014/pkg/logger"
)

func main() {
	cfg := config.Load()

	// Reports go to stdout, logs to stderr.
	logger.InitWithOutput(cfg.ServiceName, cfg.Env, cfg.LogLevel, "stderr")
	defer logger.Sync()

	if err := command.NewApp(cfg).Run(os.Args); err != nil {
		command.PrintError("%v", err)
		logger.Sync()
		os.Exit(1)
	}
}
