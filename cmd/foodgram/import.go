package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/mikepea/foodgram/pkg/foodgram/admin"
	"github.com/mikepea/foodgram/pkg/foodgram/importer"
	"github.com/spf13/cobra"
)

func runImportIngredients(cmd *cobra.Command, args []string) error {
	return importFile(cmd, args[0], (*importer.Importer).Ingredients)
}

func runImportTags(cmd *cobra.Command, args []string) error {
	return importFile(cmd, args[0], (*importer.Importer).Tags)
}

func importFile(cmd *cobra.Command, path string, run func(*importer.Importer, context.Context, io.Reader) (*importer.Result, error)) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	result, err := run(importer.New(db), cmd.Context(), f)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "imported %d, existing %d, skipped %d\n", result.Imported, result.Existing, result.Skipped)
	for _, e := range result.Errors {
		fmt.Fprintln(out, "  "+e)
	}
	return nil
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	db, err := openDatabase()
	if err != nil {
		return err
	}

	created, err := admin.EnsureAdmin(cmd.Context(), db, admin.Bootstrap{
		Email:    adminEmail,
		Username: adminUsername,
		Password: adminPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure admin user exists: %w", err)
	}
	if !created {
		fmt.Fprintln(cmd.OutOrStdout(), "an admin user already exists")
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "admin %s is ready\n", adminEmail)
	return nil
}
