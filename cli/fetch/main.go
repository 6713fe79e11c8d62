package main

import (
	"os"
	"strings"

	sing "github.com/sagernet/sing-fetch"
	"github.com/sagernet/sing-fetch/common/log"

	"github.com/spf13/cobra"
)

var logger = log.NewLogger("fetch")

func main() {
	command := newCommand()
	command.SetArgs(normalizeArgs(os.Args[1:]))
	err := command.Execute()
	if err != nil {
		logger.Fatal(err)
	}
}

// normalizeArgs lowercases the subcommand so CLIENT and Server are accepted.
func normalizeArgs(args []string) []string {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return args
	}
	normalized := append([]string(nil), args...)
	normalized[0] = strings.ToLower(normalized[0])
	return normalized
}

func newCommand() *cobra.Command {
	f := new(flags)
	command := &cobra.Command{
		Use:     "fetch",
		Short:   "fetch a named file over TCP",
		Version: sing.VersionStr,
		Args:    cobra.ArbitraryArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Usage()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			err := f.load(cmd)
			if err != nil {
				return err
			}
			log.Setup(os.Stderr, f.Verbose)
			return nil
		},
		SilenceUsage: true,
	}
	f.bindCommon(command)
	command.AddCommand(newClientCommand(f), newServerCommand(f))
	return command
}
