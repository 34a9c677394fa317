package tool

import (
	"errors"

	"github.com/rs/zerolog"
)

// Catalog is the set of tool declarations advertised to the model.
//
// A catalog is either complete or degraded. When any descriptor fails to
// normalize, the whole catalog falls back to zero declarations so that the
// conversation can still proceed without tools; Degraded and Err report it.
type Catalog struct {
	decls    []Declaration
	degraded bool
	err      error
}

// EmptyCatalog returns a complete catalog with no tools.
func EmptyCatalog() *Catalog {
	return &Catalog{}
}

// BuildCatalog normalizes descriptors in order. Later descriptors reusing an
// earlier name are skipped, matching how calls are resolved.
func BuildCatalog(descriptors []Descriptor, logger zerolog.Logger) *Catalog {
	decls, err := declarations(descriptors, logger)
	if err != nil {
		logger.Warn().Err(err).Int("tools", len(descriptors)).Msg("tool schema conversion failed, continuing without tools")
		return &Catalog{degraded: true, err: err}
	}
	return &Catalog{decls: decls}
}

func declarations(descriptors []Descriptor, logger zerolog.Logger) ([]Declaration, error) {
	decls := make([]Declaration, 0, len(descriptors))
	seen := make(map[string]struct{}, len(descriptors))
	for _, d := range descriptors {
		if d.Name == "" {
			return nil, &SchemaConversionError{Path: "#", Cause: errors.New("tool name is empty")}
		}
		if _, dup := seen[d.Name]; dup {
			logger.Warn().Str("tool", d.Name).Msg("duplicate tool name, keeping first")
			continue
		}
		seen[d.Name] = struct{}{}

		params, dropped, err := NormalizeReport(d.InputSchema)
		if err != nil {
			var convErr *SchemaConversionError
			if errors.As(err, &convErr) {
				convErr.Tool = d.Name
			}
			return nil, err
		}
		if len(dropped) > 0 {
			logger.Debug().Str("tool", d.Name).Strs("dropped", dropped).Msg("unsupported schema keywords dropped")
		}
		decls = append(decls, Declaration{
			Name:        d.Name,
			Description: d.Description,
			Parameters:  params,
		})
	}
	return decls, nil
}

// Declarations returns a copy of the declarations.
func (c *Catalog) Declarations() []Declaration {
	if c == nil {
		return nil
	}
	return append([]Declaration(nil), c.decls...)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.decls)
}

// Degraded reports whether conversion failed and the catalog fell back to empty.
func (c *Catalog) Degraded() bool { return c != nil && c.degraded }

// Err returns the conversion failure behind a degraded catalog.
func (c *Catalog) Err() error {
	if c == nil {
		return nil
	}
	return c.err
}
