package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/vitrine/internal/domain"
	"github.com/kailas-cloud/vitrine/internal/domain/product"
	"github.com/kailas-cloud/vitrine/internal/domain/search/candidate"
	"github.com/kailas-cloud/vitrine/internal/domain/search/facet"
	"github.com/kailas-cloud/vitrine/internal/domain/search/filter"
	"github.com/kailas-cloud/vitrine/internal/domain/search/page"
	logpkg "github.com/kailas-cloud/vitrine/internal/logger"
	"github.com/kailas-cloud/vitrine/internal/metrics"
)

// Defaults applied when the service is built without explicit limits.
const (
	DefaultTopK               = 50
	DefaultHybridCatalogLimit = 500
	DefaultSimilarityTimeout  = 3 * time.Second
)

// Source tells which backends produced a result page.
type Source string

// Result sources.
const (
	SourceCatalog    Source = "catalog"
	SourceSimilarity Source = "similarity"
	SourceFused      Source = "fused"
)

// ResultPage is one page of search results.
type ResultPage struct {
	Items []candidate.Scored
	Meta  page.Meta
	// Filters echoes the resolved predicate the page was built from.
	Filters filter.Predicate
	Source  Source
	// Degraded is set when the similarity service failed and the page was built without it.
	Degraded bool
}

// Service runs catalog, hybrid text and image searches.
type Service struct {
	catalog    CatalogStore
	similarity SimilarityService
	facets     FacetSource
	logger     *zap.Logger

	topK               int
	hybridCatalogLimit int
	similarityTimeout  time.Duration
}

// New creates a search service. similarity may be nil, in which case every
// hybrid and image search degrades to the catalog.
func New(catalog CatalogStore, similarity SimilarityService, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		catalog:            catalog,
		similarity:         similarity,
		facets:             catalog,
		logger:             logger,
		topK:               DefaultTopK,
		hybridCatalogLimit: DefaultHybridCatalogLimit,
		similarityTimeout:  DefaultSimilarityTimeout,
	}
}

// WithLimits sets the similarity top-K and the catalog window used by hybrid searches.
// Non-positive values keep the current setting.
func (s *Service) WithLimits(topK, hybridCatalogLimit int) *Service {
	if topK > 0 {
		s.topK = topK
	}
	if hybridCatalogLimit > 0 {
		s.hybridCatalogLimit = hybridCatalogLimit
	}
	return s
}

// WithFacetSource replaces the catalog as the source of facet values (e.g. with a cache).
func (s *Service) WithFacetSource(f FacetSource) *Service {
	if f != nil {
		s.facets = f
	}
	return s
}

// WithSimilarityTimeout bounds each similarity call. Zero disables the bound.
func (s *Service) WithSimilarityTimeout(d time.Duration) *Service {
	s.similarityTimeout = d
	return s
}

// List browses the catalog. A predicate carrying search text runs the hybrid text flow instead.
func (s *Service) List(ctx context.Context, pred filter.Predicate) (ResultPage, error) {
	if pred.HasSearch() {
		return s.SearchText(ctx, pred)
	}

	rows, total, err := s.catalog.Query(ctx, pred, page.Window{Offset: pred.Offset(), Limit: pred.PageSize()})
	if err != nil {
		return ResultPage{}, fmt.Errorf("query catalog: %w", err)
	}

	items := make([]candidate.Scored, 0, len(rows))
	for i := range rows {
		items = append(items, candidate.FromCatalog(rows[i]))
	}

	metrics.SearchRequestsTotal.WithLabelValues(metrics.FlowList, string(SourceCatalog)).Inc()
	return ResultPage{
		Items:   items,
		Meta:    page.NewMeta(pred.Page(), pred.PageSize(), total),
		Filters: pred,
		Source:  SourceCatalog,
	}, nil
}

// SearchText runs the catalog query and the text similarity search concurrently, fuses
// both sequences and paginates the fused result once.
func (s *Service) SearchText(ctx context.Context, pred filter.Predicate) (ResultPage, error) {
	text, ok := pred.Search().Get()
	if !ok {
		return ResultPage{}, domain.NewValidationError("search", "search text is required")
	}

	var (
		rows    []product.Product
		total   int
		similar []candidate.Scored
		simErr  error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, n, err := s.catalog.Query(gctx, pred, page.Window{Offset: 0, Limit: s.hybridCatalogLimit})
		if err != nil {
			return fmt.Errorf("query catalog: %w", err)
		}
		rows, total = r, n
		return nil
	})
	g.Go(func() error {
		// Similarity failures degrade the result and never cancel the catalog query.
		similar, simErr = s.similar(gctx, func(ctx context.Context) ([]candidate.Hit, error) {
			if s.similarity == nil {
				return nil, errSimilarityNotConfigured
			}
			return s.similarity.SearchByText(ctx, text, s.topK)
		})
		return nil
	})
	if err := g.Wait(); err != nil {
		return ResultPage{}, err
	}

	degraded := s.degrade(ctx, metrics.FlowText, simErr)
	fused := Fuse(pred, similar, rows)
	metrics.SearchFusedItems.WithLabelValues(metrics.FlowText).Observe(float64(len(fused.Items)))

	source := SourceCatalog
	if fused.FromSimilarity > 0 {
		source = SourceFused
	}
	metrics.SearchRequestsTotal.WithLabelValues(metrics.FlowText, string(source)).Inc()

	pg, err := s.hybridPage(ctx, pred, fused, len(rows), total)
	if err != nil {
		return ResultPage{}, err
	}
	return ResultPage{Items: pg.Items, Meta: pg.Meta, Filters: pred, Source: source, Degraded: degraded}, nil
}

// hybridPage slices the requested page out of the fused sequence. When the catalog window
// did not hold every matching row, the sequence continues with the rows past it: they are
// read in catalog order with the similarity matches excluded, starting after the window's
// catalog-only rows, so no identity repeats and the total counts every match.
func (s *Service) hybridPage(
	ctx context.Context, pred filter.Predicate, fused Fused, windowRows, catalogTotal int,
) (page.Result[candidate.Scored], error) {
	if catalogTotal <= windowRows {
		return page.Slice(fused.Items, pred.Page(), pred.PageSize()), nil
	}

	head := fused.Items
	// Fusion ranks every similarity match ahead of the catalog-only rows.
	matched := make([]string, 0, fused.FromSimilarity)
	for i := range head[:fused.FromSimilarity] {
		matched = append(matched, head[i].ID())
	}

	start, size := pred.Offset(), pred.PageSize()
	items := make([]candidate.Scored, 0, size)
	items = append(items, head[min(start, len(head)):min(start+size, len(head))]...)

	tailStart := fused.FromCatalog
	rest, restTotal, err := s.catalog.Query(ctx, pred.WithoutIDs(matched...), page.Window{
		Offset: tailStart + max(0, start-len(head)),
		Limit:  size - len(items),
	})
	if err != nil {
		return page.Result[candidate.Scored]{}, fmt.Errorf("query catalog past hybrid window: %w", err)
	}
	for i := range rest {
		if fused.FromSimilarity > 0 {
			items = append(items, candidate.WithFallback(rest[i]))
		} else {
			items = append(items, candidate.FromCatalog(rest[i]))
		}
	}

	total := len(head) + max(0, restTotal-tailStart)
	return page.Result[candidate.Scored]{Items: items, Meta: page.NewMeta(pred.Page(), size, total)}, nil
}

// SearchImage runs an image similarity search. The catalog is only used to resolve hits
// to products; candidates failing the predicate's attribute, price or stock constraints are dropped.
func (s *Service) SearchImage(
	ctx context.Context, img []byte, mimeType string, pred filter.Predicate,
) (ResultPage, error) {
	similar, simErr := s.similar(ctx, func(ctx context.Context) ([]candidate.Hit, error) {
		if s.similarity == nil {
			return nil, errSimilarityNotConfigured
		}
		return s.similarity.SearchByImage(ctx, img, mimeType, s.topK)
	})
	degraded := s.degrade(ctx, metrics.FlowImage, simErr)

	fused := Fuse(pred, similar, nil)
	metrics.SearchFusedItems.WithLabelValues(metrics.FlowImage).Observe(float64(len(fused.Items)))
	metrics.SearchRequestsTotal.WithLabelValues(metrics.FlowImage, string(SourceSimilarity)).Inc()

	pg := page.Slice(fused.Items, pred.Page(), pred.PageSize())
	return ResultPage{
		Items: pg.Items, Meta: pg.Meta, Filters: pred, Source: SourceSimilarity, Degraded: degraded,
	}, nil
}

// Facets returns the filterable attribute values of the whole catalog.
func (s *Service) Facets(ctx context.Context) (facet.Set, error) {
	raw, err := s.facets.Facets(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog facets: %w", err)
	}
	return facet.Normalize(raw), nil
}

var errSimilarityNotConfigured = errors.New("similarity service not configured")

// similar calls the similarity service and resolves its hits to products in rank order.
// Any failure is reported as domain.ErrUpstreamUnavailable.
func (s *Service) similar(
	ctx context.Context, search func(context.Context) ([]candidate.Hit, error),
) ([]candidate.Scored, error) {
	callCtx := ctx
	if s.similarityTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.similarityTimeout)
		defer cancel()
	}

	hits, err := search(callCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity search: %w", domain.ErrUpstreamUnavailable, err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	found, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: resolve similarity hits: %w", domain.ErrUpstreamUnavailable, err)
	}

	byID := make(map[string]product.Product, len(found))
	for i := range found {
		byID[found[i].ID()] = found[i]
	}

	out := make([]candidate.Scored, 0, len(hits))
	for _, h := range hits {
		p, ok := byID[h.ID]
		if !ok {
			continue
		}
		out = append(out, candidate.FromSimilarity(p, h.Score))
	}
	return out, nil
}

func (s *Service) degrade(ctx context.Context, flow string, err error) bool {
	if err == nil {
		return false
	}
	metrics.SearchSimilarityDegradedTotal.WithLabelValues(flow).Inc()
	logpkg.From(ctx, s.logger).Warn("similarity search degraded",
		zap.String("flow", flow),
		zap.Error(err),
	)
	return true
}
