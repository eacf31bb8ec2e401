package evaluator

import "testing"

func TestPerfectRankingMetrics(t *testing.T) {
	judgmentValues := []int{3, 3, 3, 3, 2, 2, 1, 1, 0, 0}
	ids := make([]int64, len(judgmentValues))
	judgments := make(map[int64]int, len(judgmentValues))
	results := make([]ResultRow, len(judgmentValues))
	for i, rel := range judgmentValues {
		ids[i] = int64(i + 1)
		judgments[ids[i]] = rel
		results[i] = ResultRow{ProductID: ids[i], Position: i}
	}

	if got := NDCG(results, judgments, 10); absDiff(got, 1.0) > 1e-9 {
		t.Fatalf("expected nDCG@10 = 1.0, got %v", got)
	}
	if got := Recall(results, judgments, 10); got != 1.0 {
		t.Fatalf("expected Recall@10 = 1.0, got %v", got)
	}
	if got := Precision(results, judgments, 10); got != 0.8 {
		t.Fatalf("expected Precision@10 = 0.8, got %v", got)
	}
	if got := MRR(results, judgments); got != 1.0 {
		t.Fatalf("expected MRR = 1.0, got %v", got)
	}
}

func TestZeroRelevantItemsYieldZeroMetrics(t *testing.T) {
	a, b := int64(1), int64(2)
	judgments := map[int64]int{a: 0, b: 0}
	results := []ResultRow{{ProductID: a, Position: 0}, {ProductID: b, Position: 1}}

	if got := NDCG(results, judgments, 10); got != 0 {
		t.Fatalf("expected nDCG = 0, got %v", got)
	}
	if got := Recall(results, judgments, 10); got != 0 {
		t.Fatalf("expected Recall = 0, got %v", got)
	}
	if got := MRR(results, judgments); got != 0 {
		t.Fatalf("expected MRR = 0, got %v", got)
	}
	if got := AP(results, judgments); got != 0 {
		t.Fatalf("expected AP = 0, got %v", got)
	}
	if got := Precision(results, judgments, 10); got != 0 {
		t.Fatalf("expected Precision = 0, got %v", got)
	}
}

func TestKGreaterThanResultLength(t *testing.T) {
	a := int64(1)
	judgments := map[int64]int{a: 1}
	results := []ResultRow{{ProductID: a, Position: 0}}

	if got := Precision(results, judgments, 10); got != 1.0 {
		t.Fatalf("expected precision to use actual result length, got %v", got)
	}
	if got := Recall(results, judgments, 10); got != 1.0 {
		t.Fatalf("expected recall to use full judgment set, got %v", got)
	}
}

func TestAutoJudgeExactTitleAndHighRatio(t *testing.T) {
	id := int64(1)
	products := []Product{{ID: id, Title: "Wireless Bluetooth Headphones", Text: "Wireless Bluetooth Headphones noise cancelling"}}
	judgments := AutoJudge("wireless bluetooth headphones", products)
	if judgments[id] != 3 {
		t.Fatalf("expected relevance 3, got %v", judgments[id])
	}
}

func TestAutoJudgeIsReproducible(t *testing.T) {
	id := int64(1)
	products := []Product{{ID: id, Title: "Office Chair", Text: "Leather office chair"}}
	first := AutoJudge("office chair", products)
	second := AutoJudge("office chair", products)
	if first[id] != second[id] {
		t.Fatalf("expected reproducible judgments, got %v vs %v", first[id], second[id])
	}
}

func absDiff(a, b float64) float64 {
	if a > b {
		return a - b
	}
	return b - a
}
