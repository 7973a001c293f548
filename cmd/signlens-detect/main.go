// Command signlens-detect reads one detection request as JSON on stdin and
// writes one result envelope as JSON on stdout.
package main

import (
	"flag"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/ayusman/signlens/internal/app"
	"github.com/ayusman/signlens/internal/cli"
	"github.com/ayusman/signlens/internal/config"
	"github.com/ayusman/signlens/internal/detector"
	"github.com/ayusman/signlens/internal/logging"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		logrus.Errorf("Failed to load configuration: %v", err)
		return cli.Abort(os.Stdout, err)
	}

	model := flag.String("model", cfg.ModelPath, "model weights (.pt for worker, .onnx for onnx)")
	classes := flag.String("classes", cfg.ClassesPath, "optional model_info.json with class names")
	backend := flag.String("backend", string(cfg.Backend), "detector backend: worker or onnx")
	logLevel := flag.String("log-level", "warn", "log level written to stderr")
	flag.Parse()

	// stdout carries exactly one JSON document; logs go to stderr.
	log, err := logging.New(*logLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		logrus.Errorf("Failed to configure logging: %v", err)
		return cli.Abort(os.Stdout, err)
	}

	cfg.ModelPath = *model
	cfg.ClassesPath = *classes
	cfg.Backend = detector.Backend(*backend)

	a, err := app.New(app.Config{
		ClassesPath: cfg.ClassesPath,
		Detector:    cfg.Detector(0),
	}, log)
	if err != nil {
		log.Errorf("Failed to initialize: %v", err)
		return cli.Abort(os.Stdout, err)
	}
	defer a.Close()

	return cli.Run(os.Stdin, os.Stdout, a.Pipeline(), a.StartupErr())
}
