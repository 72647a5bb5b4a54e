package impact

import (
	"context"

	"nullfix/internal/callgraph"
	"nullfix/internal/fix"
	"nullfix/internal/location"
	"nullfix/internal/tracker"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("nullfix.impact")

// Report is the blast radius of one fix.
type Report struct {
	Direct   location.RegionSet // regions reported by the region trackers
	Indirect location.RegionSet // transitive callers beyond the direct ones
	Tracked  bool               // false when no tracker handles the location kind
}

// All returns Direct ∪ Indirect.
func (r Report) All() location.RegionSet {
	return r.Direct.Union(r.Indirect)
}

// Analyzer combines the region trackers with the call graph to compute the
// blast radius of candidate fixes.
type Analyzer struct {
	trackers        tracker.RegionTracker
	graph           *callgraph.Graph
	transitiveDepth int
	parallelism     int
}

// NewAnalyzer creates an analyzer. transitiveDepth > 0 adds callers of
// callers up to that many extra hops for method-return fixes.
func NewAnalyzer(trackers tracker.RegionTracker, graph *callgraph.Graph, transitiveDepth, parallelism int) *Analyzer {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Analyzer{
		trackers:        trackers,
		graph:           graph,
		transitiveDepth: transitiveDepth,
		parallelism:     parallelism,
	}
}

// BlastRadius computes the regions affected by f.
func (a *Analyzer) BlastRadius(f fix.Fix) Report {
	report := Report{
		Direct:   location.NewRegionSet(),
		Indirect: location.NewRegionSet(),
	}

	regions, ok := a.trackers.Regions(f.Location)
	if ok {
		report.Tracked = true
		for r := range regions {
			report.Direct.Add(r)
		}
	}

	if f.Location.IsMethod() && a.graph != nil {
		for _, u := range a.graph.Usage(f) {
			report.Direct.Add(u.Region())
		}
		if a.transitiveDepth > 0 {
			for _, u := range a.graph.TransitiveUsage(f.Location.Member, f.Location.Class, a.transitiveDepth) {
				if !report.Direct.Contains(u.Region()) {
					report.Indirect.Add(u.Region())
				}
			}
		}
	}
	return report
}

// AnalyzeAll computes the blast radius of every fix. Queries run
// concurrently; the underlying stores are read-only for the pass.
func (a *Analyzer) AnalyzeAll(ctx context.Context, fixes []fix.Fix) (map[fix.Key]Report, error) {
	ctx, span := tracer.Start(ctx, "impact.AnalyzeAll",
		trace.WithAttributes(
			attribute.Int("fixes", len(fixes)),
			attribute.Int("parallelism", a.parallelism),
		),
	)
	defer span.End()

	reports := make([]Report, len(fixes))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.parallelism)
	for i := range fixes {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			reports[i] = a.BlastRadius(fixes[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	out := make(map[fix.Key]Report, len(fixes))
	untracked := 0
	for i, f := range fixes {
		if !reports[i].Tracked {
			untracked++
		}
		out[f.Key()] = reports[i]
	}
	span.SetAttributes(attribute.Int("untracked", untracked))
	span.SetStatus(codes.Ok, "")
	return out, nil
}
