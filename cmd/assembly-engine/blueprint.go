// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/assembly-engine/internal/blueprint"
	"github.com/pdiddy/assembly-engine/pkg/types"
)

var blueprintCmd = &cobra.Command{
	Use:   "blueprint",
	Short: "Inspect and manipulate blueprint artifacts",
	Long: `Blueprint operates on serialized blueprint files: validate checks
structural integrity, show pretty-prints one, diff compares two, and
merge overlays one on another. Merged blueprints drop their
compatibility score; re-run assemble to score the new combination.`,
}

// --- validate subcommand ---

var blueprintValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Check a blueprint file for structural problems",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlueprintValidate,
}

func runBlueprintValidate(cmd *cobra.Command, args []string) error {
	bp, err := readBlueprint(args[0])
	if err != nil {
		return err
	}

	result := blueprint.Validate(bp)
	if result.Valid {
		fmt.Println("Blueprint is valid.")
		return nil
	}
	for _, e := range result.Errors {
		fmt.Fprintf(os.Stderr, "  %s\n", e)
	}
	return fmt.Errorf("blueprint has %d problem(s)", len(result.Errors))
}

// --- show subcommand ---

var blueprintShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Pretty-print a blueprint file",
	Args:  cobra.ExactArgs(1),
	RunE:  runBlueprintShow,
}

func runBlueprintShow(cmd *cobra.Command, args []string) error {
	bp, err := readBlueprint(args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(bp)
}

// --- diff subcommand ---

var blueprintDiffCmd = &cobra.Command{
	Use:   "diff [old] [new]",
	Short: "Compare two blueprint files",
	Args:  cobra.ExactArgs(2),
	RunE:  runBlueprintDiff,
}

func runBlueprintDiff(cmd *cobra.Command, args []string) error {
	oldBP, err := readBlueprint(args[0])
	if err != nil {
		return err
	}
	newBP, err := readBlueprint(args[1])
	if err != nil {
		return err
	}

	d := blueprint.Compare(oldBP, newBP)
	if !d.HasChanges {
		fmt.Println("No changes.")
		return nil
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// --- merge subcommand ---

var blueprintMergeCmd = &cobra.Command{
	Use:   "merge [base] [overlay]",
	Short: "Overlay one blueprint on another",
	Long: `Merge combines two blueprints: overlay scalars win, content ids are
the union (base order first), and the compatibility score is cleared
because it described a combination that no longer exists.`,
	Args: cobra.ExactArgs(2),
	RunE: runBlueprintMerge,
}

func runBlueprintMerge(cmd *cobra.Command, args []string) error {
	base, err := readBlueprint(args[0])
	if err != nil {
		return err
	}
	overlay, err := readBlueprint(args[1])
	if err != nil {
		return err
	}

	merged := blueprint.Merge(base, overlay)

	out, _ := cmd.Flags().GetString("output")
	data, err := blueprint.Serialize(merged)
	if err != nil {
		return err
	}
	if out == "" {
		fmt.Println(string(data))
		return nil
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing merged blueprint: %w", err)
	}
	fmt.Printf("Merged blueprint written to %s\n", out)
	return nil
}

// readBlueprint loads and deserializes one blueprint file. Malformed
// content deserializes to nil, which is an error at the CLI surface.
func readBlueprint(path string) (*types.Blueprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading blueprint %s: %w", path, err)
	}
	bp := blueprint.Deserialize(data)
	if bp == nil {
		return nil, fmt.Errorf("%s is not a usable blueprint", path)
	}
	return bp, nil
}

func init() {
	blueprintMergeCmd.Flags().String("output", "", "write the merged blueprint to a file instead of stdout")

	blueprintCmd.AddCommand(blueprintValidateCmd)
	blueprintCmd.AddCommand(blueprintShowCmd)
	blueprintCmd.AddCommand(blueprintDiffCmd)
	blueprintCmd.AddCommand(blueprintMergeCmd)

	rootCmd.AddCommand(blueprintCmd)
}
