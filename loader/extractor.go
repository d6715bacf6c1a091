// Package loader finds embedded SQL queries and declared table schemas in
// Go source files and YAML schema files.
package loader

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/ridoystarlord/pgguard/schema"
)

// DefaultTagName is the struct tag holding column declarations
const DefaultTagName = "pgguard"

// DefaultQueryMethods are the method names whose string argument is taken
// as SQL. They cover database/sql, pgx and sqlx.
var DefaultQueryMethods = []string{
	"Query", "QueryContext", "QueryRow", "QueryRowContext",
	"Exec", "ExecContext", "Prepare", "PrepareContext",
	"Get", "GetContext", "Select", "SelectContext",
	"NamedExec", "NamedExecContext", "NamedQuery", "NamedQueryContext",
	"QueryRowx", "Queryx", "MustExec",
}

var ErrUnsupportedFile = errors.New("unsupported source file")

type Options struct {
	// TagName is the struct tag read for column declarations
	TagName string
	// QueryMethods overrides DefaultQueryMethods
	QueryMethods []string
	Logger       *slog.Logger
}

// Extractor finds queries and table schemas in source files
type Extractor struct {
	tagName      string
	queryMethods map[string]bool
	logger       *slog.Logger
}

// NewExtractor creates an extractor with the given options
func NewExtractor(opts Options) *Extractor {
	tagName := opts.TagName
	if tagName == "" {
		tagName = DefaultTagName
	}

	methods := opts.QueryMethods
	if len(methods) == 0 {
		methods = DefaultQueryMethods
	}
	methodSet := make(map[string]bool, len(methods))
	for _, m := range methods {
		methodSet[m] = true
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Extractor{
		tagName:      tagName,
		queryMethods: methodSet,
		logger:       logger,
	}
}

// Supported reports whether the extractor handles the file extension
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go", ".yaml", ".yml":
		return true
	}
	return false
}

// Extract returns the queries and table schemas declared in file. On error
// the result is nil.
func (e *Extractor) Extract(file *schema.SourceFile) (*schema.ExtractionResult, error) {
	var (
		result *schema.ExtractionResult
		err    error
	)

	switch strings.ToLower(filepath.Ext(file.FilePath)) {
	case ".go":
		result, err = e.extractGo(file)
	case ".yaml", ".yml":
		result, err = e.extractYAML(file)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, file.FilePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", file.FilePath, err)
	}

	e.logger.Debug("extracted source file",
		"file", file.FilePath,
		"queries", len(result.Queries),
		"tables", len(result.TableSchemas))
	return result, nil
}
