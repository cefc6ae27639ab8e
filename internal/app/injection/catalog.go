package injection

import (
	"context"
	"fmt"
	"strings"

	regexp "github.com/wasilibs/go-re2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domain "github.com/ahrav/see-armada/internal/domain/injection"
	"github.com/ahrav/see-armada/pkg/common/logger"
)

// DefaultMaxSignalWidth is the widest signal admitted to a catalog when no
// explicit limit is configured.
const DefaultMaxSignalWidth = 128

// Filters restrict which signals of a hierarchy become injection candidates.
// The name and path lists are regular expressions combined by alternation and
// matched unanchored; literal names must be escaped by the caller.
// ExcludeModules is a plain set of module names compared exactly.
type Filters struct {
	// ExcludeNames rejects signals whose local name matches.
	ExcludeNames []string
	// ExcludePaths prunes any node, and everything below it, whose full path matches.
	ExcludePaths []string
	// ExcludeModules prunes scopes whose module definition name is in the set.
	ExcludeModules []string
	// IncludeNames, when set, admits only signals whose local name matches.
	IncludeNames []string
}

// Catalog holds the candidate sets of a campaign. SEU and SET always cover the
// same signals; SEU wraps them in descriptors.
type Catalog struct {
	SEU []*domain.SignalDescriptor
	SET []domain.Signal
}

// Size returns the total candidate count the goal is evaluated against.
func (c Catalog) Size() int { return len(c.SEU) + len(c.SET) }

// CatalogBuilder walks design hierarchies and collects the signals that pass
// its filters.
type CatalogBuilder struct {
	excludeNames   *regexp.Regexp
	excludePaths   *regexp.Regexp
	excludeModules map[string]struct{}
	includeNames   *regexp.Regexp
	maxWidth       int

	logger *logger.Logger
	tracer trace.Tracer
}

// NewCatalogBuilder compiles filters. A maxWidth of zero or less selects
// DefaultMaxSignalWidth.
func NewCatalogBuilder(
	filters Filters,
	maxWidth int,
	logger *logger.Logger,
	tracer trace.Tracer,
) (*CatalogBuilder, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxSignalWidth
	}
	b := &CatalogBuilder{
		maxWidth:       maxWidth,
		excludeModules: make(map[string]struct{}, len(filters.ExcludeModules)),
		logger:         logger.With("component", "catalog_builder"),
		tracer:         tracer,
	}

	for _, m := range filters.ExcludeModules {
		b.excludeModules[m] = struct{}{}
	}

	var err error
	if b.excludeNames, err = compileAlternation(filters.ExcludeNames); err != nil {
		return nil, fmt.Errorf("compile exclude names: %w", err)
	}
	if b.excludePaths, err = compileAlternation(filters.ExcludePaths); err != nil {
		return nil, fmt.Errorf("compile exclude paths: %w", err)
	}
	if b.includeNames, err = compileAlternation(filters.IncludeNames); err != nil {
		return nil, fmt.Errorf("compile include names: %w", err)
	}
	return b, nil
}

// compileAlternation joins patterns as (p1)|(p2)|... A nil result means the
// list was empty.
func compileAlternation(patterns []string) (*regexp.Regexp, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	groups := make([]string, len(patterns))
	for i, p := range patterns {
		groups[i] = "(" + p + ")"
	}
	return regexp.Compile(strings.Join(groups, "|"))
}

func excludes(re *regexp.Regexp, s string) bool { return re != nil && re.MatchString(s) }
func includes(re *regexp.Regexp, s string) bool { return re == nil || re.MatchString(s) }

// Build walks every root depth-first and returns the candidate sets in
// traversal order. Roots themselves are never filtered out.
func (b *CatalogBuilder) Build(ctx context.Context, roots ...domain.Node) (Catalog, error) {
	ctx, span := b.tracer.Start(ctx, "catalog_builder.injection.build",
		trace.WithAttributes(
			attribute.Int("roots", len(roots)),
			attribute.Int("max_signal_width", b.maxWidth),
		))
	defer span.End()

	cat := Catalog{
		SEU: make([]*domain.SignalDescriptor, 0),
		SET: make([]domain.Signal, 0),
	}
	for _, root := range roots {
		if root == nil {
			continue
		}
		var err error
		if root.Kind() == domain.NodeKindSignal {
			b.addSignal(ctx, root, &cat)
		} else {
			err = b.walk(ctx, root, &cat)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to build catalog")
			return Catalog{}, err
		}
	}

	span.SetAttributes(
		attribute.Int("seu_candidates", len(cat.SEU)),
		attribute.Int("set_candidates", len(cat.SET)),
	)
	span.SetStatus(codes.Ok, "catalog built")
	b.logger.Info(ctx, "signal catalog built", "seu_candidates", len(cat.SEU), "set_candidates", len(cat.SET))

	return cat, nil
}

// walk visits the children of node. Scopes, array elements included, are
// pruned only by their own definition name.
func (b *CatalogBuilder) walk(ctx context.Context, node domain.Node, cat *Catalog) error {
	children, err := node.Children()
	if err != nil {
		return fmt.Errorf("list children of %s: %w", node.Path(), err)
	}

	for _, child := range children {
		if excludes(b.excludePaths, child.Path()) {
			b.logger.Debug(ctx, "path excluded", "path", child.Path())
			continue
		}

		switch child.Kind() {
		case domain.NodeKindSignal:
			b.addSignal(ctx, child, cat)

		case domain.NodeKindScope:
			def := child.DefinitionName()
			if _, excluded := b.excludeModules[def]; excluded {
				b.logger.Debug(ctx, "module excluded", "path", child.Path(), "module", def)
				continue
			}
			if err := b.walk(ctx, child, cat); err != nil {
				return err
			}

		case domain.NodeKindArray:
			if err := b.walk(ctx, child, cat); err != nil {
				return err
			}
		}
	}
	return nil
}

func (b *CatalogBuilder) addSignal(ctx context.Context, node domain.Node, cat *Catalog) {
	name := node.Name()
	if excludes(b.excludeNames, name) || !includes(b.includeNames, name) {
		return
	}
	sig := node.Signal()
	if sig == nil {
		return
	}
	if w := sig.Width(); w > b.maxWidth {
		b.logger.Debug(ctx, "signal too wide", "path", sig.Path(), "width", w, "max_width", b.maxWidth)
		return
	}
	cat.SEU = append(cat.SEU, domain.NewRegisterDescriptor(sig))
	cat.SET = append(cat.SET, sig)
}
