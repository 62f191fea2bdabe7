package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nainya/versionstore/pkg/registry"
	"github.com/nainya/versionstore/pkg/versioning"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a branch/commit/merge walkthrough in-process",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.OutOrStdout())
	},
}

func runDemo(out io.Writer) error {
	reg := registry.New(versioning.New())
	store := reg.Store()

	lawyer, err := reg.RegisterUser("lawyer")
	if err != nil {
		return err
	}
	head, err := reg.RegisterUser("head_lawyer")
	if err != nil {
		return err
	}

	contract, err := reg.CreateDocument("Lease agreement", "The tenant shall pay rent monthly.", lawyer.ID())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Created document %q (%s)\n", contract.Title(), contract.ID())

	fmt.Fprintln(out, "\nWorking on branch 'amendments'")
	if err := store.CreateBranch(contract, "amendments", lawyer); err != nil {
		return err
	}
	if err := store.SwitchBranch(contract, "amendments", lawyer); err != nil {
		return err
	}
	if _, err := reg.EditContent(contract.ID(),
		contract.Content()+"\nAdditional terms: utility payments are to be made by the tenant.",
		lawyer.ID()); err != nil {
		return err
	}
	if _, err := store.CommitChanges(contract, lawyer, "Added clause about utility payments", ""); err != nil {
		return err
	}

	fmt.Fprintln(out, "\nMerging 'amendments' into 'main' under lock")
	if err := store.SwitchBranch(contract, versioning.MainBranch, head); err != nil {
		return err
	}
	token, err := store.LockDocument(contract, head)
	if err != nil {
		return err
	}
	if _, err := store.CommitChanges(contract, lawyer, "Unapproved edit", ""); err != nil {
		fmt.Fprintf(out, "  lawyer commit rejected: %v\n", err)
	}
	msg, err := store.MergeBranches(contract, "amendments", versioning.MainBranch, head, token)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "  %s\n", msg)
	if err := store.UnlockDocument(contract, head); err != nil {
		return err
	}

	for _, branch := range store.DocumentBranches(contract) {
		fmt.Fprintf(out, "\nVersion history for branch '%s':\n", branch)
		for _, v := range store.VersionHistory(contract, branch) {
			fmt.Fprintf(out, "  Version %d, author: %s", v.Version, v.Author.DisplayName())
			if v.Description != "" {
				fmt.Fprintf(out, " (%s)", v.Description)
			}
			fmt.Fprintln(out)
		}
	}

	fmt.Fprintln(out, "\nDocument history:")
	for _, entry := range contract.History() {
		fmt.Fprintf(out, "  %s  %s\n", entry.Timestamp.Format("15:04:05"), entry.Message)
	}
	return nil
}
