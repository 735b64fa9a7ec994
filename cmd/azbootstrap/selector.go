package main

import (
	"fmt"

	"github.com/Bibi40k/azure-vm-bootstrap/pkg/config"
)

const exitOption = "Exit"

// runSelector lets the user pick a node to provision when no command is given.
func runSelector() error {
	if !isInteractive() {
		return &userError{msg: "no command given", hint: "run 'azbootstrap --help'"}
	}
	file, err := config.LoadNodeFile(nodeFilePath)
	if err != nil {
		return err
	}
	fmt.Printf("\033[1mazbootstrap\033[0m — %s (%s)\n\n", file.Provider.Name, nodeFilePath)

	options := append(file.NodeNames(), exitOption)
	name := selectOne("Select node to provision:", options)
	if name == "" || name == exitOption {
		return nil
	}
	return nodeCreate(name, createOptions{})
}
