package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "freightctl",
		Short:         "Inspect and extract freight rate tables from e-mail bodies",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(sectionsCmd())
	root.AddCommand(parseCmd())
	root.AddCommand(tokenCmd())
	return root
}
