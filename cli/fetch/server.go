package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sagernet/sing-fetch/transport/fetch"

	"github.com/spf13/cobra"
)

func newServerCommand(f *flags) *cobra.Command {
	command := &cobra.Command{
		Use:   "server",
		Short: "Serve files from a directory",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runServer(cmd.Context(), f)
		},
	}
	f.bindServer(command)
	return command
}

func runServer(ctx context.Context, f *flags) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	server, err := fetch.NewServer(ctx, f.serverOptions())
	if err != nil {
		logger.Fatal(err)
	}
	err = server.Start()
	if err != nil {
		logger.Fatal(err)
	}
	logger.Info("serving ", f.Root, " at ", server.Addr())

	osSignals := make(chan os.Signal, 1)
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)
	select {
	case <-osSignals:
	case <-server.Done():
	}

	server.Close()
}
