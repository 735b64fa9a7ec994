// azbootstrap - CLI tool for provisioning nodes on Azure from named images
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var nodeFilePath string
var debugLogs bool

// mainSigCh receives SIGINT for the default handler. serve stops delivery
// to it and shuts the server down gracefully instead.
var mainSigCh = make(chan os.Signal, 1)

var rootCmd = &cobra.Command{
	Use:           "azbootstrap",
	Short:         "Provision Azure nodes from managed or marketplace images",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = initDebugLogger()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSelector()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&nodeFilePath, "config", "configs/nodes.yaml",
		"Path to the node definition file")
	rootCmd.PersistentFlags().BoolVar(&debugLogs, "debug", false, "Enable debug logging to "+debugLogPath)
	rootCmd.AddCommand(nodeCmd)
	rootCmd.AddCommand(sizesCmd)
	rootCmd.AddCommand(serveCmd)
}

func main() {
	signal.Notify(mainSigCh, os.Interrupt)
	go func() {
		<-mainSigCh
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}()

	if err := rootCmd.Execute(); err != nil {
		const (
			red    = "\033[31m"
			yellow = "\033[33m"
			cyan   = "\033[36m"
			reset  = "\033[0m"
		)
		ue := explain(err)
		fmt.Fprintf(os.Stderr, "%sError:%s %s\n", red, reset, ue.Error())
		if hint := ue.Hint(); hint != "" {
			fmt.Fprintf(os.Stderr, "%sHint:%s %s%s%s\n", yellow, reset, cyan, hint, reset)
		}
		if debugCleanup != nil {
			debugCleanup()
		}
		os.Exit(1)
	}
	if debugCleanup != nil {
		debugCleanup()
	}
}
