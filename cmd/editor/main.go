package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/denismitr/heroic/cmd/initialize"
	"github.com/denismitr/heroic/internal/editor"
	"github.com/denismitr/heroic/internal/media/manipulator"
)

var (
	migrate = flag.Bool("migrate", false, "Create the activity store indexes?")
)

func main() {
	flag.Parse()

	initialize.DotEnv()

	log := initialize.Logger()

	store, closeStore := initialize.ActivityStore(10*time.Second, *migrate)
	defer closeStore()

	server := editor.NewServer(
		initialize.EditorConfig(),
		log,
		manipulator.New(initialize.ManipulatorConfig()),
		editor.WithActivityStore(store),
		editor.WithEntitlements(initialize.Entitlements()),
	)

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGTERM, syscall.SIGINT)

	if err := server.Run(stopCh, 10*time.Second); err != nil {
		log.WithError(err).Errorln("image editor server stopped")
		closeStore()
		os.Exit(1)
	}
}
