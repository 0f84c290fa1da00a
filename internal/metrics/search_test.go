package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSearchMetrics_CountersIncrement(t *testing.T) {
	before := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues(FlowText, "fused"))
	SearchRequestsTotal.WithLabelValues(FlowText, "fused").Inc()
	after := testutil.ToFloat64(SearchRequestsTotal.WithLabelValues(FlowText, "fused"))
	if after-before != 1 {
		t.Fatalf("expected increment of 1, got %f", after-before)
	}

	SearchSimilarityDegradedTotal.WithLabelValues(FlowImage).Inc()
	if v := testutil.ToFloat64(SearchSimilarityDegradedTotal.WithLabelValues(FlowImage)); v < 1 {
		t.Errorf("expected degraded counter >= 1, got %f", v)
	}
}

func TestSearchMetrics_FusedItemsObserved(t *testing.T) {
	SearchFusedItems.WithLabelValues(FlowList).Observe(12)
	if n := testutil.CollectAndCount(SearchFusedItems); n == 0 {
		t.Error("expected search_fused_items to have series")
	}
}

func TestRegisterSearchMetrics_Idempotent(t *testing.T) {
	RegisterSearchMetrics()
	RegisterSearchMetrics()
	if !searchMetricsRegistered {
		t.Fatal("expected search metrics to be registered")
	}
}
