package cmd

import (
	"fmt"

	"github.com/ridoystarlord/pgguard/loader"
	"github.com/ridoystarlord/pgguard/parser"
	"github.com/ridoystarlord/pgguard/schema"
)

// scan is the merged extraction result of every file
type scan struct {
	Files  []string
	Result schema.ExtractionResult
}

// scanPaths finds the source files under paths (or the configured paths
// when none are given) and parses each of them.
func (a *app) scanPaths(paths []string) (*scan, error) {
	if len(paths) == 0 {
		paths = a.cfg.Paths
	}

	files, err := loader.FindSourceFiles(paths, a.cfg.IncludeTests)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no Go or YAML files found in %v", paths)
	}
	a.logger.Debug("found source files", "count", len(files))

	opts := a.cfg.LoaderOptions()
	opts.Logger = a.logger
	p := parser.New(loader.NewExtractor(opts), a.tracer)

	s := &scan{
		Files: files,
		Result: schema.ExtractionResult{
			Queries:      []schema.Query{},
			TableSchemas: []schema.TableSchema{},
		},
	}
	for _, path := range files {
		file, err := loader.LoadSourceFile(path)
		if err != nil {
			return nil, err
		}

		result, err := p.Parse(file)
		if err != nil {
			return nil, err
		}

		s.Result.Queries = append(s.Result.Queries, result.Queries...)
		s.Result.TableSchemas = append(s.Result.TableSchemas, result.TableSchemas...)
	}

	return s, nil
}
