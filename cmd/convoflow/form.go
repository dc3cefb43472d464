package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/convoflow/convoflow/types"
)

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Manage form definitions",
}

var formCreateCmd = &cobra.Command{
	Use:   "create <definition.json>",
	Short: "Create a form from a JSON definition file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var form types.FormDefinition
		if err := sonic.Unmarshal(data, &form); err != nil {
			return fmt.Errorf("parse form definition: %w", err)
		}
		if err := dataStore.CreateForm(cmd.Context(), &form); err != nil {
			return err
		}
		fmt.Printf("Created form %s (%s)\n", form.ID, form.Name)
		return nil
	},
}

var formListCmd = &cobra.Command{
	Use:   "list",
	Short: "List form definitions",
	RunE: func(cmd *cobra.Command, args []string) error {
		forms, err := dataStore.ListForms(cmd.Context())
		if err != nil {
			return err
		}
		table := tablewriter.NewTable(os.Stdout)
		table.Header("ID", "Name", "Fields", "Created")
		for _, form := range forms {
			_ = table.Append(form.ID, form.Name, strconv.Itoa(len(form.Fields)), form.CreatedAt.Format("2006-01-02"))
		}
		return table.Render()
	},
}

func init() {
	rootCmd.AddCommand(formCmd)
	formCmd.AddCommand(formCreateCmd)
	formCmd.AddCommand(formListCmd)
}
