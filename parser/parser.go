// Package parser runs extraction on a source file and traces what was found.
package parser

import (
	"fmt"
	"strings"

	"github.com/ridoystarlord/pgguard/schema"
	"github.com/ridoystarlord/pgguard/trace"
)

// Extractor finds queries and table schemas in a loaded source file.
// It either fills both or fails; a failed call returns a nil result.
// A nil result without an error is treated as an empty one.
type Extractor interface {
	Extract(file *schema.SourceFile) (*schema.ExtractionResult, error)
}

// ExtractorFunc adapts a function to the Extractor interface
type ExtractorFunc func(file *schema.SourceFile) (*schema.ExtractionResult, error)

func (f ExtractorFunc) Extract(file *schema.SourceFile) (*schema.ExtractionResult, error) {
	return f(file)
}

// Parser runs an Extractor on source files and traces the tables and
// queries it finds
type Parser struct {
	extractor  Extractor
	tracer     *trace.Tracer
	formatType func(schema.ColumnDescriptor) string
}

// New creates a parser. A nil tracer disables all tracing.
func New(extractor Extractor, tracer *trace.Tracer) *Parser {
	if tracer == nil {
		tracer = trace.Disabled()
	}
	return &Parser{
		extractor:  extractor,
		tracer:     tracer,
		formatType: FormatColumnType,
	}
}

// Parse extracts queries and table schemas from file. The result is returned
// exactly as the extractor produced it and extraction errors are returned
// unchanged. An extractor returning neither a result nor an error yields an
// empty result.
func (p *Parser) Parse(file *schema.SourceFile) (*schema.ExtractionResult, error) {
	p.tracer.Emitf(trace.File, "Start parsing file %s", file.FilePath)

	result, err := p.extractor.Extract(file)
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = &schema.ExtractionResult{}
	}

	p.tracer.Emitf(trace.File, "Parsed file %s:", file.FilePath)

	for i := range result.TableSchemas {
		p.traceTable(&result.TableSchemas[i])
	}
	for i := range result.Queries {
		p.traceQuery(&result.Queries[i])
	}

	return result, nil
}

func (p *Parser) traceTable(table *schema.TableSchema) {
	p.tracer.Emitf(trace.Table, "  Table: %s", table.TableName)
	for _, columnName := range table.ColumnNames {
		p.tracer.Emit(trace.Table, func() string {
			columnType := p.formatType(table.ColumnDescriptors[columnName])
			return fmt.Sprintf("    Column \"%s\": %s", columnName, columnType)
		})
	}
}

func (p *Parser) traceQuery(query *schema.Query) {
	p.tracer.Emit(trace.Query, func() string {
		return fmt.Sprintf("  Query at %s: %s", query.Location, compactSQL(query.Text))
	})
	p.tracer.Emit(trace.Query, func() string {
		return "    Columns: " + FormatColumnRefs(query.Columns)
	})
	for i := range query.Subqueries {
		p.traceSubquery(&query.Subqueries[i], 1)
	}
}

func (p *Parser) traceSubquery(query *schema.Query, depth int) {
	indent := strings.Repeat("  ", depth+1)
	p.tracer.Emit(trace.Subquery, func() string {
		return fmt.Sprintf("%sSubquery: %s", indent, compactSQL(query.Text))
	})
	p.tracer.Emit(trace.Subquery, func() string {
		return indent + "  Columns: " + FormatColumnRefs(query.Columns)
	})
	for i := range query.Subqueries {
		p.traceSubquery(&query.Subqueries[i], depth+1)
	}
}

// compactSQL folds whitespace so a statement fits on one trace line
func compactSQL(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}
