// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/assembly-engine/internal/library"
	"github.com/pdiddy/assembly-engine/pkg/types"
)

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the bundled component library",
	Long: `Library manages the SQLite component store the engine assembles from.
Use subcommands to initialize a database with a default space, add
single components, import a YAML bundle, and list or show what a user
can see.`,
}

// --- init subcommand ---

var libraryInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the library database with a default space",
	RunE:  runLibraryInit,
}

func runLibraryInit(cmd *cobra.Command, args []string) error {
	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	spaceName, _ := cmd.Flags().GetString("space")
	spaceID, err := store.AddSpace(ctx, spaceName)
	if err != nil {
		return err
	}

	userID, _ := cmd.Flags().GetInt64("user")
	if err := store.AddMember(ctx, spaceID, userID, true); err != nil {
		return err
	}

	fmt.Printf("Library initialized: space %q (id %d), user %d has write access\n", spaceName, spaceID, userID)
	return nil
}

// --- add subcommand ---

var libraryAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Add a single component to the library",
	Long: `Add inserts one component. The role label (prompt, content, or style)
is required; the component body is read from --text or stdin.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLibraryAdd,
}

func runLibraryAdd(cmd *cobra.Command, args []string) error {
	label, _ := cmd.Flags().GetString("role")
	role, err := types.ParseRole(label)
	if err != nil {
		return err
	}

	text, _ := cmd.Flags().GetString("text")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("reading component text from stdin: %w", err)
		}
		text = string(data)
	}

	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	spaceName, _ := cmd.Flags().GetString("space")
	spaceID, err := store.AddSpace(ctx, spaceName)
	if err != nil {
		return err
	}

	tagsCSV, _ := cmd.Flags().GetString("tags")
	var tags []string
	if tagsCSV != "" {
		tags = strings.Split(tagsCSV, ",")
	}
	userID, _ := cmd.Flags().GetInt64("user")

	excerpt, _ := cmd.Flags().GetString("excerpt")
	id, err := store.AddComponent(ctx, &types.Component{
		Title:    strings.Join(args, " "),
		Excerpt:  excerpt,
		FullText: text,
		Tags:     tags,
		Label:    string(role),
		AuthorID: userID,
	}, spaceID)
	if err != nil {
		return err
	}

	fmt.Printf("Added %s component %d\n", role, id)
	return nil
}

// --- import subcommand ---

var libraryImportCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import a YAML component bundle",
	Long: `Import reads a YAML list of components (title, label, excerpt,
full_text, tags, author_id, space) and inserts them, creating named
spaces on demand. Invalid entries are skipped; the import continues.`,
	Args: cobra.ExactArgs(1),
	RunE: runLibraryImport,
}

func runLibraryImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening bundle %s: %w", args[0], err)
	}
	defer f.Close()

	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	n, err := store.ImportYAML(context.Background(), f, os.Stdout)
	if err != nil {
		return err
	}
	fmt.Printf("\n%d component(s) imported\n", n)
	return nil
}

// --- list subcommand ---

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List components visible to a user",
	RunE:  runLibraryList,
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	userID, _ := cmd.Flags().GetInt64("user")
	label, _ := cmd.Flags().GetString("role")

	items, err := store.List(context.Background(), label, types.Requester{UserID: userID})
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	if len(items) == 0 {
		fmt.Println("No components found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-6s  %-8s  %-44s  %s\n", "ID", "Role", "Title", "Tags")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 80))
	for _, c := range items {
		title := c.Title
		if len(title) > 44 {
			title = title[:41] + "..."
		}
		fmt.Fprintf(os.Stdout, "%-6d  %-8s  %-44s  %s\n", c.ID, c.Label, title, strings.Join(c.Tags, ","))
	}
	fmt.Fprintf(os.Stdout, "\n%d component(s)\n", len(items))
	return nil
}

// --- show subcommand ---

var libraryShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show a single component with its full text",
	Args:  cobra.ExactArgs(1),
	RunE:  runLibraryShow,
}

func runLibraryShow(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid component id %q", args[0])
	}

	store, err := openLibrary(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	userID, _ := cmd.Flags().GetInt64("user")
	c, err := store.Fetch(context.Background(), id, types.Requester{UserID: userID})
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(c)
	}

	fmt.Printf("ID:      %d\n", c.ID)
	fmt.Printf("Role:    %s\n", c.Label)
	fmt.Printf("Title:   %s\n", c.Title)
	if c.Excerpt != "" {
		fmt.Printf("Excerpt: %s\n", c.Excerpt)
	}
	if len(c.Tags) > 0 {
		fmt.Printf("Tags:    %s\n", strings.Join(c.Tags, ","))
	}
	if c.FullText != "" {
		fmt.Printf("\n%s\n", c.FullText)
	}
	return nil
}

// --- shared helpers ---

func openLibrary(cmd *cobra.Command) (*library.Store, error) {
	cfg := engineConfig().Library
	if path, _ := cmd.Flags().GetString("db"); path != "" {
		cfg.Path = path
	}
	return library.Open(cfg)
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	libraryCmd.PersistentFlags().String("db", "", "library database file (default: configured library.path)")
	libraryCmd.PersistentFlags().Int64("user", 1, "acting user id")
	libraryCmd.PersistentFlags().String("space", "default", "space name")

	// Add flags.
	libraryAddCmd.Flags().String("role", "", "component role: prompt, content, or style (required)")
	libraryAddCmd.Flags().String("text", "", "component body (default: read from stdin)")
	libraryAddCmd.Flags().String("excerpt", "", "short excerpt shown in candidate lists")
	libraryAddCmd.Flags().String("tags", "", "comma-separated tags")
	libraryAddCmd.MarkFlagRequired("role")

	// List flags.
	libraryListCmd.Flags().String("role", "", "filter by role label")
	libraryListCmd.Flags().Bool("json", false, "output results as JSON")

	// Show flags.
	libraryShowCmd.Flags().Bool("json", false, "output the component as JSON")

	// Wire subcommands.
	libraryCmd.AddCommand(libraryInitCmd)
	libraryCmd.AddCommand(libraryAddCmd)
	libraryCmd.AddCommand(libraryImportCmd)
	libraryCmd.AddCommand(libraryListCmd)
	libraryCmd.AddCommand(libraryShowCmd)

	rootCmd.AddCommand(libraryCmd)
}
