package xmltv

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// LinearSource is one externally-published XMLTV guide feed — a league or
// network's own EPG, ingested whole rather than synthesized from matched
// streams. Unlike the Provider-backed leagues, a linear source publishes
// its schedule directly; there is nothing to match against.
type LinearSource struct {
	ID       string
	Name     string
	URL      string
	Priority int // higher wins when two sources cover the same channel/slot
}

// FetchLinearSources downloads every source's XMLTV document (skipping,
// rather than failing the batch on, any single source that errors) and
// merges them highest-priority-first, so Merge's first-occurrence-wins
// dedup rule resolves conflicts in priority order.
func FetchLinearSources(ctx context.Context, client *http.Client, sources []LinearSource, generatorName string) ([]byte, []error) {
	if client == nil {
		client = http.DefaultClient
	}

	ordered := make([]LinearSource, len(sources))
	copy(ordered, sources)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Priority > ordered[j].Priority })

	var docs [][]byte
	var errs []error
	for _, src := range ordered {
		doc, err := fetchOne(ctx, client, src)
		if err != nil {
			errs = append(errs, fmt.Errorf("linear source %s: %w", src.Name, err))
			continue
		}
		docs = append(docs, doc)
	}

	merged, err := Merge(docs, generatorName)
	if err != nil {
		errs = append(errs, fmt.Errorf("merge linear sources: %w", err))
		return nil, errs
	}
	return merged, errs
}

func fetchOne(ctx context.Context, client *http.Client, src LinearSource) ([]byte, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(fetchCtx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/xml,text/xml,*/*")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, 50<<20))
}
