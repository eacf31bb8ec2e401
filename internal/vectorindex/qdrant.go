package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
)

// qdrantIndex is an ANN-capable backend, a drop-in replacement for the
// linear scan, built on Qdrant's HTTP API — generalized from namespaced
// document chunks to a single flat collection of product vectors with a
// category/price/availability payload for filtered scans.
type qdrantIndex struct {
	log        *logger.Logger
	baseURL    string
	collection string
	dim        int
	http       *http.Client
}

type QdrantConfig struct {
	URL        string
	Collection string
	VectorDim  int
}

func NewQdrantIndex(log *logger.Logger, cfg QdrantConfig) (Index, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.URL) == "" || strings.TrimSpace(cfg.Collection) == "" {
		return nil, fmt.Errorf("qdrant url and collection are required")
	}
	idx := &qdrantIndex{
		log:        log.With("component", "QdrantVectorIndex"),
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		collection: cfg.Collection,
		dim:        cfg.VectorDim,
		http:       &http.Client{Timeout: 10 * time.Second},
	}
	idx.log.Info("qdrant vector index selected", "url", idx.baseURL, "collection", idx.collection, "dim", idx.dim)
	return idx, nil
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

func (s *qdrantIndex) Upsert(ctx context.Context, productID string, vector []float64, meta Metadata) error {
	const op = "upsert"
	if productID == "" {
		return opErr(op, OperationErrorValidation, "product id is required", nil)
	}
	if s.dim > 0 && len(vector) != s.dim {
		return opErr(op, OperationErrorValidation, fmt.Sprintf("vector dimension mismatch: expected=%d got=%d", s.dim, len(vector)), nil)
	}
	vec32 := toFloat32(vector)
	point := map[string]any{
		"id":     productID,
		"vector": vec32,
		"payload": map[string]any{
			"category":     meta.Category,
			"price":        meta.Price,
			"availability": meta.Availability,
		},
	}
	req := map[string]any{"points": []map[string]any{point}}
	return s.doJSON(ctx, op, http.MethodPut, s.collectionPath("/points?wait=true"), req, nil)
}

func (s *qdrantIndex) Lookup(ctx context.Context, productID string) ([]float64, bool, error) {
	const op = "lookup"
	var result struct {
		Vector []float64 `json:"vector"`
	}
	err := s.doJSON(ctx, op, http.MethodGet, s.collectionPath("/points/"+productID), nil, &result)
	if err != nil {
		var opErrTyped *OperationError
		if errors.As(err, &opErrTyped) && opErrTyped.StatusCode == http.StatusNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}
	if len(result.Vector) == 0 {
		return nil, false, nil
	}
	return result.Vector, true, nil
}

func (s *qdrantIndex) Scan(ctx context.Context, queryVector []float64, filter Filter, k int) ([]Match, error) {
	const op = "scan"
	if len(queryVector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if k <= 0 {
		k = 10
	}
	req := map[string]any{
		"vector":       toFloat32(queryVector),
		"limit":        k,
		"with_payload": false,
		"with_vector":  false,
		"filter":       translateFilter(filter),
	}
	var rawResults []qdrantSearchResultItem
	if err := s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/search"), req, &rawResults); err != nil {
		return nil, err
	}
	out := make([]Match, 0, len(rawResults))
	for _, item := range rawResults {
		id := strings.Trim(string(item.ID), "\"")
		if id == "" {
			continue
		}
		out = append(out, Match{ProductID: id, Cosine: item.Score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Cosine != out[j].Cosine {
			return out[i].Cosine > out[j].Cosine
		}
		return lessProductID(out[i].ProductID, out[j].ProductID)
	})
	return out, nil
}

func (s *qdrantIndex) Delete(ctx context.Context, productID string) error {
	const op = "delete"
	req := map[string]any{"points": []string{productID}}
	return s.doJSON(ctx, op, http.MethodPost, s.collectionPath("/points/delete?wait=true"), req, nil)
}

func translateFilter(f Filter) map[string]any {
	var must []map[string]any
	if f.Category != "" {
		must = append(must, map[string]any{
			"key":   "category",
			"match": map[string]any{"value": f.Category},
		})
	}
	if f.MinPrice != nil || f.MaxPrice != nil {
		rng := map[string]any{}
		if f.MinPrice != nil {
			rng["gte"] = *f.MinPrice
		}
		if f.MaxPrice != nil {
			rng["lte"] = *f.MaxPrice
		}
		must = append(must, map[string]any{"key": "price", "range": rng})
	}
	if f.InStockOnly {
		must = append(must, map[string]any{
			"key":   "availability",
			"match": map[string]any{"value": "in_stock"},
		})
	}
	if len(must) == 0 {
		return nil
	}
	return map[string]any{"must": must}
}

func (s *qdrantIndex) collectionPath(suffix string) string {
	return "/collections/" + s.collection + suffix
}

func (s *qdrantIndex) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{Code: OperationErrorQueryFailed, Operation: op, StatusCode: resp.StatusCode, Message: fmt.Sprintf("qdrant http status=%d", resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
