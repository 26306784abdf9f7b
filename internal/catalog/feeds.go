package catalog

import (
	"context"
	"errors"
	"fmt"

	"eventboard/internal/ics"
	appLog "eventboard/internal/log"
	"eventboard/internal/model"
)

// FeedFetcher is satisfied by *ics.Fetcher.
type FeedFetcher interface {
	FetchAll(ctx context.Context, sources []ics.Source) ([]ics.FetchResult, error)
}

// LoadFeeds fetches the ICS feeds, expands them over the policy year and
// validates the resulting events like catalog entries. Feed failures are
// returned joined alongside whatever events could still be loaded.
func LoadFeeds(ctx context.Context, fetcher FeedFetcher, sources []ics.Source, opts Options) ([]model.Event, error) {
	if len(sources) == 0 {
		return nil, nil
	}

	results, fetchErr := fetcher.FetchAll(ctx, sources)
	errs := []error{fetchErr}

	expandCfg := ics.YearRange(opts.Policy)
	out := make([]model.Event, 0)

	for _, res := range results {
		parsed, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: parse: %w", res.Source.ID, err))
			continue
		}
		occs, err := ics.ExpandOccurrences(parsed, expandCfg)
		if err != nil {
			errs = append(errs, fmt.Errorf("feed %s: expand: %w", res.Source.ID, err))
			continue
		}

		// A broken feed entry must not take the whole board down.
		feedOpts := opts
		feedOpts.Strict = false
		valid, rejected, _ := Validate(res.Source.ID, ics.ToEvents(occs), feedOpts)
		out = append(out, valid...)

		appLog.Info("feed loaded",
			"id", res.Source.ID,
			"from_cache", res.FromCache,
			"events", len(valid),
			"rejected", len(rejected),
		)
	}

	return out, errors.Join(errs...)
}
