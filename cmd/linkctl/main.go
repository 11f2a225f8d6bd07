// Command linkctl is a small demonstration harness for the link layer,
// grounded on Dragon-Born-paqet's cmd/commands.go cobra wiring. It is
// not itself part of the link layer contract (spec.md section 1); it
// just exercises internal/link/dispatch end to end from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "linkctl",
		Short: "bind and dial unicast links from the command line",
	}
	root.AddCommand(listenCmd())
	root.AddCommand(dialCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
