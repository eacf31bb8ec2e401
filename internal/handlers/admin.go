package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/kestrel-retail/discovery-engine/internal/apperr"
	"github.com/kestrel-retail/discovery-engine/internal/catalogjob"
	"github.com/kestrel-retail/discovery-engine/internal/evaluator"
	"github.com/kestrel-retail/discovery-engine/internal/repos"
	"github.com/kestrel-retail/discovery-engine/internal/types"
	"github.com/kestrel-retail/discovery-engine/internal/weights"
)

// AdminHandler covers the operator-facing surface: weight tuning, catalog
// CRUD and re-embedding, and the IR evaluation report.
type AdminHandler struct {
	weights  *weights.Service
	products repos.ProductRepo
	metrics  repos.EvaluationMetricRepo
	logs     repos.SearchLogRepo
	jobs     *catalogjob.Service
}

func NewAdminHandler(weightsSvc *weights.Service, products repos.ProductRepo, metrics repos.EvaluationMetricRepo, logs repos.SearchLogRepo, jobs *catalogjob.Service) *AdminHandler {
	return &AdminHandler{weights: weightsSvc, products: products, metrics: metrics, logs: logs, jobs: jobs}
}

func (h *AdminHandler) GetWeights(c *gin.Context) {
	w, err := h.weights.Active(c.Request.Context())
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, w)
}

type updateWeightsBody struct {
	Alpha float64 `json:"alpha" binding:"required"`
	Beta  float64 `json:"beta"`
	Gamma float64 `json:"gamma"`
	Delta float64 `json:"delta"`
	Eps   float64 `json:"epsilon"`
}

func (h *AdminHandler) UpdateWeights(c *gin.Context) {
	var body updateWeightsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondErr(c, invalidInput(err))
		return
	}
	updated, err := h.weights.Update(c.Request.Context(), &types.RankingWeights{
		Alpha: body.Alpha,
		Beta:  body.Beta,
		Gamma: body.Gamma,
		Delta: body.Delta,
		Eps:   body.Eps,
	})
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, updated)
}

type productBody struct {
	SKU         *string  `json:"sku"`
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Brand       string   `json:"brand"`
	Features    []string `json:"features"`
	Price       float64  `json:"price"`
	Currency    string   `json:"currency"`
	Rating      *float64 `json:"rating"`
	ReviewCount int      `json:"review_count"`
	Availability string  `json:"availability"`
	StockQty    int      `json:"stock_qty"`
	ImageURL    string   `json:"image_url"`
	Featured    bool     `json:"featured"`
}

func (b productBody) toProduct() *types.Product {
	availability := types.Availability(b.Availability)
	if availability == "" {
		availability = types.AvailabilityInStock
	}
	currency := b.Currency
	if currency == "" {
		currency = "USD"
	}
	return &types.Product{
		SKU:          b.SKU,
		Title:        b.Title,
		Description:  b.Description,
		Category:     b.Category,
		Subcategory:  b.Subcategory,
		Brand:        b.Brand,
		Features:     b.Features,
		Price:        b.Price,
		Currency:     currency,
		Rating:       b.Rating,
		ReviewCount:  b.ReviewCount,
		Availability: availability,
		StockQty:     b.StockQty,
		ImageURL:     b.ImageURL,
		Featured:     b.Featured,
	}
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var body productBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondErr(c, invalidInput(err))
		return
	}
	p := body.toProduct()
	if err := h.products.Upsert(c.Request.Context(), nil, p); err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, p)
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondErr(c, apperr.InvalidInput("invalid product id", err))
		return
	}
	var body productBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondErr(c, invalidInput(err))
		return
	}
	p := body.toProduct()
	p.ID = id
	if err := h.products.Upsert(c.Request.Context(), nil, p); err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, p)
}

func (h *AdminHandler) DeleteProduct(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondErr(c, apperr.InvalidInput("invalid product id", err))
		return
	}
	if err := h.products.Delete(c.Request.Context(), nil, id); err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

// RegenerateEmbedding re-embeds a single product synchronously, through a
// tracked job over that one product.
func (h *AdminHandler) RegenerateEmbedding(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		RespondErr(c, apperr.InvalidInput("invalid product id", err))
		return
	}
	job, err := h.jobs.StartJob(c.Request.Context(), "regenerate:"+strconv.FormatInt(id, 10), 1)
	if err != nil {
		RespondErr(c, err)
		return
	}
	if err := h.jobs.Run(c.Request.Context(), job.ID, []int64{id}); err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"ok": true, "job_id": job.ID})
}

type regenerateAllBody struct {
	ProductIDs []string `json:"product_ids"`
}

// RegenerateAllEmbeddings kicks off a tracked batch job over either the
// caller-supplied id set or the full recent-candidate window.
func (h *AdminHandler) RegenerateAllEmbeddings(c *gin.Context) {
	var body regenerateAllBody
	_ = c.ShouldBindJSON(&body)

	var ids []int64
	if len(body.ProductIDs) > 0 {
		for _, raw := range body.ProductIDs {
			id, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				RespondErr(c, apperr.InvalidInput("invalid product id in product_ids", err))
				return
			}
			ids = append(ids, id)
		}
	} else {
		all, err := h.products.RecentCandidates(c.Request.Context(), nil, 100000)
		if err != nil {
			RespondErr(c, err)
			return
		}
		for _, p := range all {
			ids = append(ids, p.ID)
		}
	}

	job, err := h.jobs.StartJob(c.Request.Context(), "regenerate-all", len(ids))
	if err != nil {
		RespondErr(c, err)
		return
	}
	jobCtx := context.WithoutCancel(c.Request.Context())
	go func() {
		if err := h.jobs.Run(jobCtx, job.ID, ids); err != nil {
			return
		}
	}()
	RespondOK(c, gin.H{"ok": true, "job_id": job.ID, "total": len(ids)})
}

type calculateMetricsBody struct {
	Queries []struct {
		Query   string `json:"query"`
		LogID   string `json:"log_id"`
		Results []struct {
			ProductID  string  `json:"product_id"`
			Position   int     `json:"position"`
			FinalScore float64 `json:"final_score"`
			Title      string  `json:"title"`
			Text       string  `json:"text"`
		} `json:"results"`
	} `json:"queries"`
}

// CalculateMetrics runs the IR evaluator over a caller-supplied set of query
// result sets, auto-judging relevance from title/text overlap, and
// persists both per-query and aggregate rows.
func (h *AdminHandler) CalculateMetrics(c *gin.Context) {
	var body calculateMetricsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondErr(c, invalidInput(err))
		return
	}

	var ndcgs, recalls, precisions, mrrs []float64
	var saved []*types.EvaluationMetric

	for _, q := range body.Queries {
		var rows []evaluator.ResultRow
		var products []evaluator.Product
		for _, r := range q.Results {
			id, err := strconv.ParseInt(r.ProductID, 10, 64)
			if err != nil {
				continue
			}
			rows = append(rows, evaluator.ResultRow{ProductID: id, Position: r.Position, FinalScore: r.FinalScore})
			products = append(products, evaluator.Product{ID: id, Title: r.Title, Text: r.Text})
		}
		judgments := evaluator.AutoJudge(q.Query, products)

		ndcg := evaluator.NDCG(rows, judgments, 10)
		recall := evaluator.Recall(rows, judgments, 10)
		precision := evaluator.Precision(rows, judgments, 10)
		mrr := evaluator.MRR(rows, judgments)

		ndcgs = append(ndcgs, ndcg)
		recalls = append(recalls, recall)
		precisions = append(precisions, precision)
		mrrs = append(mrrs, mrr)

		var logID *uuid.UUID
		if parsed, err := uuid.Parse(q.LogID); err == nil {
			logID = &parsed
		}
		saved = append(saved,
			&types.EvaluationMetric{ID: uuid.New(), SearchLogID: logID, Kind: types.MetricNDCG10, Value: ndcg},
			&types.EvaluationMetric{ID: uuid.New(), SearchLogID: logID, Kind: types.MetricRecall10, Value: recall},
			&types.EvaluationMetric{ID: uuid.New(), SearchLogID: logID, Kind: types.MetricPrecision10, Value: precision},
			&types.EvaluationMetric{ID: uuid.New(), SearchLogID: logID, Kind: types.MetricMRR, Value: mrr},
		)
	}

	if n := len(body.Queries); n > 0 {
		count := n
		saved = append(saved,
			aggregateMetric(types.MetricNDCG10, ndcgs, count),
			aggregateMetric(types.MetricRecall10, recalls, count),
			aggregateMetric(types.MetricPrecision10, precisions, count),
			aggregateMetric(types.MetricMRR, mrrs, count),
		)
	}

	if err := h.metrics.CreateBatch(c.Request.Context(), nil, saved); err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"metrics": saved})
}

func aggregateMetric(kind types.MetricKind, values []float64, count int) *types.EvaluationMetric {
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := 0.0
	if len(values) > 0 {
		avg = sum / float64(len(values))
	}
	return &types.EvaluationMetric{ID: uuid.New(), Kind: kind, Value: types.Round6(avg), QueryCount: &count, Note: "aggregate"}
}

func (h *AdminHandler) ListSearchLogs(c *gin.Context) {
	limit := parseLimit(c, 50)
	offset := 0
	logs, err := h.logs.List(c.Request.Context(), nil, limit, offset)
	if err != nil {
		RespondErr(c, err)
		return
	}
	RespondOK(c, gin.H{"results": logs})
}
