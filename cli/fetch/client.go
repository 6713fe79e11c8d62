package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sagernet/sing-fetch/common/byteformats"
	E "github.com/sagernet/sing-fetch/common/exceptions"
	"github.com/sagernet/sing-fetch/transport/fetch"

	"github.com/spf13/cobra"
)

func newClientCommand(f *flags) *cobra.Command {
	command := &cobra.Command{
		Use:   "client",
		Short: "Request a file and print it",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			runClient(cmd.Context(), f)
		},
	}
	f.bindClient(command)
	return command
}

func runClient(ctx context.Context, f *flags) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	response, err := fetch.NewClient(f.clientOptions()).Fetch(ctx, f.Filename)
	if err != nil {
		logger.Fatal(describeFetchError(f, err))
	}
	if response.Empty() {
		logger.Warn("empty response for ", f.Filename, ", the file may not exist")
		return
	}
	logger.Info("received ", f.Filename, ": ", byteformats.FormatIBytes(uint64(response.Len())), ", blake3 ", response.HexSum())
	_, err = os.Stdout.Write(response.Bytes())
	if err != nil {
		logger.Fatal(err)
	}
}

func describeFetchError(f *flags, err error) error {
	if E.IsTimeout(err) {
		return E.Cause(err, "server ", f.Host, ":", f.Port, " did not answer in time")
	}
	return err
}
