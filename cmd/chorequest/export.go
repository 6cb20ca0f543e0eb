package main

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/dukerupert/chorequest/internal/database"
	"github.com/dukerupert/chorequest/internal/gateway"
	"github.com/dukerupert/chorequest/internal/model"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print the stored document as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer db.Close()

		kv, closeKV, err := openDocumentStore(cmd.Context(), cfg, db)
		if err != nil {
			return fmt.Errorf("open %s store: %w", cfg.Store, err)
		}
		defer closeKV()

		doc, err := gateway.New(kv).Load(cmd.Context())
		if err != nil {
			return err
		}
		if doc == nil {
			logger.Info("no document stored yet")
			return nil
		}
		return printDocument(doc)
	},
}

func printDocument(doc *model.Document) error {
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	_, err = fmt.Fprintln(os.Stdout, string(out))
	return err
}
