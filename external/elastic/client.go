// Package elastic indexes per-item batch reports so distribution history can
// be searched outside the machine that ran the batch. Indexing is best
// effort, the completion ledger remains the single source of truth.
package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"runtime"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/wagervs/go-token-distributor/entities"
)

type Client struct {
	esClient  *elasticsearch.Client
	indexName string
}

func NewClient(esClient *elasticsearch.Client, indexName string) *Client {
	return &Client{
		esClient:  esClient,
		indexName: indexName,
	}
}

type reportDocument struct {
	RunID           string    `json:"runId"`
	WorkKey         string    `json:"workKey"`
	AssetID         string    `json:"assetId"`
	Recipient       string    `json:"recipient"`
	Amount          string    `json:"amount"`
	Status          string    `json:"status"`
	SettlementToken string    `json:"settlementToken,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
}

func (c *Client) IndexReports(ctx context.Context, runID string, reports []entities.Report) error {
	start := time.Now().UnixMilli()
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:      c.indexName,
		Client:     c.esClient,
		NumWorkers: min(runtime.NumCPU(), 8), // 8 parallel connections are enough
	})
	if err != nil {
		return fmt.Errorf("creating bulk indexer: %w", err)
	}

	now := time.Now().UTC()
	for i, report := range reports {
		docID := fmt.Sprintf("%s-%d", runID, i)
		payload, err := json.Marshal(reportDocument{
			RunID:           runID,
			WorkKey:         report.WorkKey,
			AssetID:         report.AssetID,
			Recipient:       report.Recipient,
			Amount:          report.Amount,
			Status:          string(report.Status),
			SettlementToken: report.SettlementToken,
			Reason:          report.Reason,
			Timestamp:       now,
		})
		if err != nil {
			return fmt.Errorf("marshalling report document: %w", err)
		}

		item := esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: docID,
			Body:       bytes.NewReader(payload),
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				msg := "Error indexing report"
				if err != nil {
					log.Printf("%s [%s]: %s: [%s]", msg, docID, string(payload), err)
				} else {
					log.Printf("%s [%s]: %s: [%s: %s]", msg, docID, string(payload), res.Error.Type, res.Error.Reason)
				}
			},
		}
		err = bi.Add(ctx, item)
		if err != nil {
			return fmt.Errorf("adding report to bulk indexer: %w", err)
		}
	}

	err = bi.Close(ctx)
	if err != nil {
		return fmt.Errorf("closing bulk indexer: %w", err)
	}

	biStats := bi.Stats()
	end := time.Now().UnixMilli()
	if biStats.NumFailed > 0 {
		return fmt.Errorf("%d errors indexing [%d] documents",
			biStats.NumFailed,
			biStats.NumFlushed,
		)
	}
	log.Printf("Indexed %d report documents (%d bytes, %d requests) in %dms.",
		biStats.NumFlushed,
		biStats.FlushedBytes,
		biStats.NumRequests,
		end-start,
	)
	return nil
}
