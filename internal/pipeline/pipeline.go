// Package pipeline is the surface other components call into: it runs
// the ingestion and dispatch passes and answers diagnostic queries.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"nodeseek_bot/internal/dispatch"
	"nodeseek_bot/internal/ingest"
	"nodeseek_bot/internal/matcher"
	"nodeseek_bot/internal/model"
	"nodeseek_bot/internal/storage"
)

// UpdateReport combines the counts of one ingest pass and the dispatch
// pass that followed it.
type UpdateReport struct {
	Ingest ingest.Report
	Push   dispatch.Report
}

// Stats is the aggregated view over the stores.
type Stats struct {
	TotalPosts    int
	Unpushed      int
	Pushed        int
	Skipped       int
	Subscriptions int
}

// Pipeline wires the ingestor and dispatcher behind one trigger.
type Pipeline struct {
	store      storage.Storage
	ingestor   *ingest.Ingestor
	dispatcher *dispatch.Dispatcher
	log        *slog.Logger
}

// New creates a Pipeline.
func New(store storage.Storage, i *ingest.Ingestor, d *dispatch.Dispatcher, log *slog.Logger) *Pipeline {
	return &Pipeline{store: store, ingestor: i, dispatcher: d, log: log}
}

// Update runs one ingestion pass followed by one dispatch pass and
// returns the combined report. When ingestion fails the dispatch pass
// still runs, so posts stored on earlier passes are not starved by a
// flaky feed; the ingest error is returned alongside the report.
func (p *Pipeline) Update(ctx context.Context) (UpdateReport, error) {
	var rep UpdateReport

	ingestRep, ingestErr := p.ingestor.Ingest(ctx)
	rep.Ingest = ingestRep
	if ingestErr != nil {
		p.log.Error("ingest pass failed", "error", ingestErr)
	}

	pushRep, err := p.dispatcher.ProcessUnpushed(ctx)
	rep.Push = pushRep
	if err != nil {
		return rep, fmt.Errorf("dispatch: %w", err)
	}

	return rep, ingestErr
}

// TestMatch evaluates one stored post against all current
// subscriptions without mutating anything. Used for diagnostics.
func (p *Pipeline) TestMatch(ctx context.Context, postID int64) (*model.Post, []matcher.Result, error) {
	post, err := p.store.GetPost(ctx, postID)
	if err != nil {
		return nil, nil, fmt.Errorf("get post: %w", err)
	}
	subs, err := p.store.ListSubscriptions(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list subscriptions: %w", err)
	}
	settings, err := p.store.GetSettings(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("get settings: %w", err)
	}
	return post, matcher.EvaluateAll(*post, subs, settings.OnlyTitle), nil
}

// Stats returns aggregated post and subscription counts.
func (p *Pipeline) Stats(ctx context.Context) (Stats, error) {
	counts, err := p.store.CountPostsByStatus(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count posts: %w", err)
	}
	subs, err := p.store.CountSubscriptions(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count subscriptions: %w", err)
	}

	s := Stats{
		Unpushed:      counts[model.StatusUnpushed],
		Pushed:        counts[model.StatusPushed],
		Skipped:       counts[model.StatusSkipped],
		Subscriptions: subs,
	}
	s.TotalPosts = s.Unpushed + s.Pushed + s.Skipped
	return s, nil
}
