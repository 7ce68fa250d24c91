package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/propdocs/internal/core/domain"
)

var entityCmd = &cobra.Command{
	Use:     "entity",
	Aliases: []string{"property"},
	Short:   "Manage property facts",
	Long: `Import and inspect the background facts (address, attributes, valuation)
that are supplied to chat answers for a property.`,
}

var entityImportCmd = &cobra.Command{
	Use:   "import [file.yaml]",
	Short: "Import properties from YAML",
	Long: `Imports one or more properties from a YAML file. The file may hold a
single property, a list of properties, or several YAML documents:

  id: p-123
  address: 12 Elm St, Springfield
  facts:
    bedrooms: "3"
    year_built: "1978"
  valuation:
    estimate: 850000
    low: 800000
    high: 900000
    as_of: 2024-05-01T00:00:00Z
    source: county`,
	Args: cobra.ExactArgs(1),
	RunE: runEntityImport,
}

var entityShowCmd = &cobra.Command{
	Use:   "show [owner-id]",
	Short: "Show a property and its rendered context",
	Args:  cobra.ExactArgs(1),
	RunE:  runEntityShow,
}

func init() {
	entityCmd.AddCommand(entityImportCmd)
	entityCmd.AddCommand(entityShowCmd)
	rootCmd.AddCommand(entityCmd)
}

func runEntityImport(cmd *cobra.Command, args []string) error {
	if entityService == nil {
		return errors.New("entity service not configured")
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading %s: %w", args[0], err)
	}

	entities, err := parseEntities(data)
	if err != nil {
		return err
	}
	if len(entities) == 0 {
		return errors.New("no properties found in file")
	}

	for _, e := range entities {
		if err := entityService.Update(cmd.Context(), e); err != nil {
			return fmt.Errorf("importing %s: %w", e.ID, err)
		}
		cmd.Printf("Imported %s (%s)\n", e.ID, e.Address)
	}
	return nil
}

// parseEntities decodes every YAML document in data. Each document is
// either one entity or a list of them.
func parseEntities(data []byte) ([]*domain.Entity, error) {
	var entities []*domain.Entity
	dec := yaml.NewDecoder(bytes.NewReader(data))
	for {
		var node yaml.Node
		if err := dec.Decode(&node); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		if len(node.Content) == 0 {
			continue
		}

		if node.Content[0].Kind == yaml.SequenceNode {
			var list []*domain.Entity
			if err := node.Decode(&list); err != nil {
				return nil, fmt.Errorf("parsing YAML: %w", err)
			}
			entities = append(entities, list...)
			continue
		}

		var e domain.Entity
		if err := node.Decode(&e); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		entities = append(entities, &e)
	}
	return entities, nil
}

func runEntityShow(cmd *cobra.Command, args []string) error {
	if entityService == nil {
		return errors.New("entity service not configured")
	}

	ctx := cmd.Context()
	e, err := entityService.Get(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to get property: %w", err)
	}

	cmd.Printf("Property: %s\n\n", e.ID)
	cmd.Printf("  Address: %s\n", e.Address)
	if len(e.Facts) > 0 {
		keys := make([]string, 0, len(e.Facts))
		for k := range e.Facts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		cmd.Println("  Facts:")
		for _, k := range keys {
			cmd.Printf("    %s: %s\n", k, e.Facts[k])
		}
	}
	if v := e.Valuation; v != nil {
		cmd.Printf("  Valuation: %.0f (%.0f - %.0f) as of %s\n", v.Estimate, v.Low, v.High, v.AsOf.Format("2006-01-02"))
	}

	rendered, err := entityService.Context(ctx, e.ID)
	if err != nil {
		return fmt.Errorf("failed to render context: %w", err)
	}
	cmd.Println()
	cmd.Println("Context:")
	cmd.Println(rendered)
	return nil
}
