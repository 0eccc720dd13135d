package handler

import (
	"bufio"
	"fmt"
	"net/http"
	"sort"

	"github.com/gophermarket/gophermarket/internal/metrics"
)

// MetricsHandler renders the in-process counters in the Prometheus text
// exposition format.
type MetricsHandler struct {
	snapshotter metrics.Snapshotter
}

// NewMetricsHandler creates a new MetricsHandler.
func NewMetricsHandler(snapshotter metrics.Snapshotter) *MetricsHandler {
	return &MetricsHandler{snapshotter: snapshotter}
}

type sample struct {
	labels string // `{status="success"}` or empty
	value  uint64
}

type family struct {
	name    string
	help    string
	samples []sample
}

func labelled(label string, m map[string]uint64) []sample {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]sample, 0, len(keys))
	for _, k := range keys {
		out = append(out, sample{labels: fmt.Sprintf("{%s=%q}", label, k), value: m[k]})
	}
	return out
}

func families(s metrics.Snapshot) []family {
	return []family{
		{"marketplace_listings_created_total", "Listings created.", []sample{{value: s.ListingsCreated}}},
		{"marketplace_listings_updated_total", "Listings updated by their owner.", []sample{{value: s.ListingsUpdated}}},
		{"marketplace_listings_deleted_total", "Listings deleted by their owner.", []sample{{value: s.ListingsDeleted}}},
		{"marketplace_image_uploads_total", "Image uploads to the blob store.", []sample{
			{`{status="success"}`, s.ImagesUploaded},
			{`{status="failed"}`, s.ImageUploadsFailed},
		}},
		{"marketplace_image_deletes_total", "Image deletions from the blob store.", []sample{
			{`{status="success"}`, s.ImagesDeleted},
			{`{status="failed"}`, s.ImageDeletesFailed},
		}},
		{"marketplace_rate_limited_total", "Requests rejected by the rate limiter.", labelled("class", s.RateLimited)},
		{"marketplace_auth_outcomes_total", "Bearer token verification outcomes.", labelled("outcome", s.AuthOutcomes)},
	}
}

// Metrics writes every counter family.
//
// GET /metrics
func (h *MetricsHandler) Metrics(w http.ResponseWriter, r *http.Request) {
	if h.snapshotter == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	bw := bufio.NewWriter(w)
	for _, f := range families(h.snapshotter.Snapshot()) {
		if len(f.samples) == 0 {
			continue
		}
		fmt.Fprintf(bw, "# HELP %s %s\n# TYPE %s counter\n", f.name, f.help, f.name)
		for _, s := range f.samples {
			fmt.Fprintf(bw, "%s%s %d\n", f.name, s.labels, s.value)
		}
	}
	_ = bw.Flush()
}
