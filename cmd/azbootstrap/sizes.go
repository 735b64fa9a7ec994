package main

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bibi40k/azure-vm-bootstrap/configs"
)

var sizesFilter string

var sizesCmd = &cobra.Command{
	Use:           "sizes",
	Short:         "List VM sizes available in the provider location",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, client, err := loadProvider()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), configs.Defaults.Timeouts.Catalog())
		defer cancel()
		sizes, err := client.ListSizes(ctx)
		if err != nil {
			return err
		}
		sort.Strings(sizes)
		shown := 0
		for _, s := range sizes {
			if sizesFilter != "" && !strings.Contains(strings.ToLower(s), strings.ToLower(sizesFilter)) {
				continue
			}
			fmt.Println("  " + s)
			shown++
		}
		fmt.Printf("\n  %d of %d sizes in %s\n", shown, len(sizes), client.Config().Location)
		return nil
	},
}

func init() {
	sizesCmd.Flags().StringVar(&sizesFilter, "filter", "", "Only show sizes containing this text")
}
