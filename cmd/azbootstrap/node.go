package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Bibi40k/azure-vm-bootstrap/configs"
	"github.com/Bibi40k/azure-vm-bootstrap/internal/utils"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/azure"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/bootstrap"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/config"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/event"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/node"
	"github.com/Bibi40k/azure-vm-bootstrap/pkg/properties"
)

type createOptions struct {
	sets        []string
	askPassword bool
	assumeYes   bool
	resultPath  string
	noResult    bool
}

var nodeCreateOpts createOptions
var nodeShowResultPath string

var nodeCmd = &cobra.Command{
	Use:           "node",
	Short:         "Node operations (create/show/list)",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var nodeCreateCmd = &cobra.Command{
	Use:           "create NAME",
	Short:         "Provision a node defined in the node file",
	Args:          cobra.ExactArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return nodeCreate(args[0], nodeCreateOpts)
	},
}

var nodeShowCmd = &cobra.Command{
	Use:           "show [NAME]",
	Short:         "Query fresh metadata of a provisioned node",
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := nodeShowResultPath
		if path == "" {
			if len(args) == 0 {
				return &userError{msg: "node name or --result is required", hint: "azbootstrap node show web-01"}
			}
			path = config.ResultPath(configs.Defaults.Output.ProvisionResultPath, args[0])
		}
		return nodeShow(path)
	},
}

var nodeListCmd = &cobra.Command{
	Use:           "list",
	Short:         "List nodes defined in the node file",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return nodeList()
	},
}

func init() {
	nodeCmd.AddCommand(nodeCreateCmd)
	nodeCmd.AddCommand(nodeShowCmd)
	nodeCmd.AddCommand(nodeListCmd)

	f := nodeCreateCmd.Flags()
	f.StringArrayVar(&nodeCreateOpts.sets, "set", nil, "Override a node property (key=value, repeatable)")
	f.BoolVar(&nodeCreateOpts.askPassword, "ask-password", false, "Prompt for the login password")
	f.BoolVarP(&nodeCreateOpts.assumeYes, "yes", "y", false, "Do not ask for confirmation")
	f.StringVar(&nodeCreateOpts.resultPath, "result", "",
		"Write provision result to YAML/JSON file (default "+configs.Defaults.Output.ProvisionResultPath+")")
	f.BoolVar(&nodeCreateOpts.noResult, "no-result", !configs.Defaults.Output.Enable, "Do not write a provision result file")

	nodeShowCmd.Flags().StringVar(&nodeShowResultPath, "result", "", "Provision result file written by node create")
}

func loadProvider() (*config.NodeFile, *azure.Client, error) {
	file, err := config.LoadNodeFile(nodeFilePath)
	if err != nil {
		return nil, nil, err
	}
	client, err := azure.NewClient(file.Provider, nil)
	if err != nil {
		return nil, nil, err
	}
	return file, client, nil
}

func nodeCreate(name string, opts createOptions) error {
	file, client, err := loadProvider()
	if err != nil {
		return err
	}
	overrides, err := config.ParseOverrides(opts.sets)
	if err != nil {
		return err
	}
	props, err := file.NodeProperties(name, overrides)
	if err != nil {
		return err
	}
	if _, ok := props.Get(node.KeySSHPassword); opts.askPassword || (!ok && isInteractive()) {
		pw, err := readPassword("Login password for " + name)
		if err != nil {
			return err
		}
		props = props.With(map[string]string{node.KeySSHPassword: pw})
	}

	printPlan(file.Ref(name), props)
	if !opts.assumeYes && isInteractive() && !confirm(fmt.Sprintf("Provision %s?", name), true) {
		fmt.Println("  Cancelled.")
		return nil
	}

	logger := getLogger()
	ctx, cancel := context.WithTimeout(context.Background(), configs.Defaults.Timeouts.Provision())
	defer cancel()

	n, err := bootstrap.ProvisionNode(ctx, file.Ref(name), props, client, event.NewSlogObserver(logger))
	if err != nil {
		return err
	}
	md := n.InitialMetadata()
	printMetadata(md)

	if opts.noResult {
		return nil
	}
	path := opts.resultPath
	if path == "" {
		path = config.ResultPath(configs.Defaults.Output.ProvisionResultPath, name)
	}
	result, err := provisionResult(file.Provider.Name, n)
	if err != nil {
		return err
	}
	if err := config.SaveProvisionResult(path, result); err != nil {
		return err
	}
	logger.Info("Provision result saved", "path", path)
	return nil
}

func provisionResult(provider string, n *bootstrap.Node) (config.ProvisionResult, error) {
	req := n.Request()
	result := config.ProvisionResult{
		Node:      n.Ref().Name,
		Provider:  provider,
		RequestID: req.ID(),
		Image:     n.ResolvedImageName(),
		SSHUser:   req.LoginUser(),
		Metadata:  n.InitialMetadata(),
	}
	if key := req.SSHPublicKey(); key != "" {
		fp, err := utils.SSHKeyFingerprint(key)
		if err != nil {
			return config.ProvisionResult{}, fmt.Errorf("fingerprint ssh key: %w", err)
		}
		result.SSHKeyFingerprint = fp
	}
	return result, nil
}

func nodeShow(resultPath string) error {
	result, err := config.LoadProvisionResult(resultPath)
	if err != nil {
		return err
	}
	file, client, err := loadProvider()
	if err != nil {
		return err
	}
	if result.Provider != "" && result.Provider != file.Provider.Name {
		getLogger().Warn("Result was written for another provider",
			"result_provider", result.Provider, "provider", file.Provider.Name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), configs.Defaults.Timeouts.Metadata())
	defer cancel()
	md, err := client.NodeMetadata(ctx, result.Metadata.ID)
	if err != nil {
		return fmt.Errorf("fetching metadata for %s: %w", result.Node, err)
	}
	printMetadata(md)
	fmt.Printf("  %-12s %s\n", "image", result.Image)
	if result.SSHKeyFingerprint != "" {
		fmt.Printf("  %-12s %s\n", "ssh key", result.SSHKeyFingerprint)
	}
	return nil
}

func nodeList() error {
	file, err := config.LoadNodeFile(nodeFilePath)
	if err != nil {
		return err
	}
	fmt.Printf("\033[1m%s\033[0m (%s)\n", file.Provider.Name, nodeFilePath)
	for _, name := range file.NodeNames() {
		props, _ := file.NodeProperties(name, nil)
		mode := props.GetOr(node.KeyImageSelectionMode, configs.Defaults.Node.ImageSelectionMode)
		fmt.Printf("  %-20s %s\n", name, imageSummary(node.Mode(mode), props))
	}
	return nil
}

func imageSummary(mode node.Mode, props properties.Properties) string {
	if mode == node.ModeClassic {
		return fmt.Sprintf("%s:%s:%s:%s", props.GetOr(node.KeyPublisher, "?"), props.GetOr(node.KeyOffer, "?"),
			props.GetOr(node.KeySKU, "?"), props.GetOr(node.KeyVersion, configs.Defaults.Node.ClassicImageVersion))
	}
	return props.GetOr(node.KeyResourceGroup, "?") + "/" + props.GetOr(node.KeyImageName, "?")
}

func printPlan(ref node.Ref, props properties.Properties) {
	fmt.Printf("\033[1mProvision node\033[0m %s\n", ref)
	fmt.Println(strings.Repeat("─", 50))
	for _, k := range props.Keys() {
		v, _ := props.Get(k)
		if k == node.KeySSHPassword {
			v = "***"
		}
		if k == node.KeySSHPublicKey && len(v) > 32 {
			v = v[:32] + "..."
		}
		fmt.Printf("  %-22s %s\n", k, v)
	}
	fmt.Println()
}

func printMetadata(md node.Metadata) {
	fmt.Println()
	fmt.Printf("  %-12s %s\n", "name", md.Name)
	fmt.Printf("  %-12s %s\n", "status", md.Status)
	fmt.Printf("  %-12s %s\n", "size", md.Size)
	fmt.Printf("  %-12s %s\n", "public ip", strings.Join(md.PublicAddresses, ", "))
	fmt.Printf("  %-12s %s\n", "private ip", strings.Join(md.PrivateAddresses, ", "))
	fmt.Printf("  %-12s %s\n", "id", md.ID)
}
