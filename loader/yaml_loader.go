package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/ridoystarlord/pgguard/schema"
)

type yamlFile struct {
	Tables []yamlTable `yaml:"tables"`
}

type yamlTable struct {
	Name    string       `yaml:"name"`
	Columns []yamlColumn `yaml:"columns"`
}

type yamlColumn struct {
	Name     string   `yaml:"name"`
	Type     string   `yaml:"type"`
	Subtype  string   `yaml:"subtype"`
	Enum     []string `yaml:"enum"`
	Nullable bool     `yaml:"nullable"`
	Primary  bool     `yaml:"primary"`
	Default  *string  `yaml:"default"`
}

// extractYAML reads table declarations from a schema file
func (e *Extractor) extractYAML(file *schema.SourceFile) (*schema.ExtractionResult, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(file.Content))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return &schema.ExtractionResult{Queries: []schema.Query{}, TableSchemas: []schema.TableSchema{}}, nil
		}
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}

	var yf yamlFile
	if err := root.Decode(&yf); err != nil {
		return nil, fmt.Errorf("unmarshalling YAML: %w", err)
	}
	lines := tableLines(&root)

	result := &schema.ExtractionResult{
		Queries:      []schema.Query{},
		TableSchemas: []schema.TableSchema{},
	}

	for i, t := range yf.Tables {
		if t.Name == "" {
			return nil, fmt.Errorf("table #%d has no name", i+1)
		}

		table := schema.NewTableSchema(t.Name)
		table.Location = schema.Location{FilePath: file.FilePath}
		if i < len(lines) {
			table.Location.Line = lines[i]
		}

		for _, c := range t.Columns {
			if c.Name == "" {
				return nil, fmt.Errorf("table '%s' has a column without name", t.Name)
			}
			table.AddColumn(c.Name, c.descriptor())
		}
		result.TableSchemas = append(result.TableSchemas, *table)
	}

	return result, nil
}

func (c yamlColumn) descriptor() schema.ColumnDescriptor {
	d := schema.ColumnDescriptor{
		Type:       c.Type,
		Nullable:   c.Nullable && !c.Primary,
		HasDefault: c.Default != nil,
	}
	if d.Type == "" {
		d.Type = "text"
	}
	if len(c.Enum) > 0 {
		d.Type = schema.TypeEnum
		d.Enum = c.Enum
	}
	if c.Subtype != "" && d.Type != schema.TypeEnum {
		d.Subtype = &schema.ColumnDescriptor{Type: c.Subtype}
	}
	return d
}

// tableLines returns the line of every entry of the top level tables list
func tableLines(root *yaml.Node) []int {
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		if doc.Content[i].Value != "tables" {
			continue
		}
		var lines []int
		for _, item := range doc.Content[i+1].Content {
			lines = append(lines, item.Line)
		}
		return lines
	}
	return nil
}
