// Command prbot runs the pull-request bot server: it ingests forge
// webhooks, reconciles pull-request state, and exposes the external
// QA and admin HTTP surfaces.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "prbot",
		Short: "prbot reconciles pull-request state against a Git forge",
	}
	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())

	if err := root.Execute(); err != nil {
		logrus.WithError(err).Error("prbot exited with an error")
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
