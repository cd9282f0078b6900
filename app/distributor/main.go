package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/ardanlabs/conf"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/wagervs/go-token-distributor/business/domain/transfer"
	esreports "github.com/wagervs/go-token-distributor/external/elastic"
	"github.com/wagervs/go-token-distributor/external/rpc"
	"github.com/wagervs/go-token-distributor/external/worklist"
	"github.com/wagervs/go-token-distributor/infrastructure/store/pebbledb"
	"github.com/wagervs/go-token-distributor/metrics"
	"github.com/wagervs/go-token-distributor/wallet"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const prefix = "TOKEN_DISTRIBUTOR"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	config := zap.NewProductionConfig()
	// this is just for sugar, to display a readable date instead of an epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("creating logger: %v", err)
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	var cfg struct {
		WorkListFile        string        `conf:"default:worklist.csv"`
		InternalStoreFolder string        `conf:"default:store"`
		NodeRpcUrl          string        `conf:"default:http://127.0.0.1:8899"`
		RpcReadTimeout      time.Duration `conf:"default:20s"`
		SubmitWriteTimeout  time.Duration `conf:"default:90s"`
		NrWorkers           int           `conf:"default:4"`
		OwnerKey            string        `conf:"noprint"`
		DryRun              bool          `conf:"default:false"`
		ServerListenAddr    string        `conf:"default:0.0.0.0:8000"`
		MetricsNamespace    string        `conf:"default:token_distributor"`
		Elastic             struct {
			Addresses []string
			IndexName string `conf:"default:distribution-reports"`
			Username  string
			Password  string `conf:"noprint"`
		}
	}

	if err := conf.Parse(os.Args[1:], prefix, &cfg); err != nil {
		switch err {
		case conf.ErrHelpWanted:
			usage, err := conf.Usage(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config usage: %v", err)
			}
			fmt.Println(usage)
			return nil
		case conf.ErrVersionWanted:
			version, err := conf.VersionString(prefix, &cfg)
			if err != nil {
				return fmt.Errorf("generating config version: %v", err)
			}
			fmt.Println(version)
			return nil
		}
		return fmt.Errorf("parsing config: %v", err)
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %v", err)
	}
	log.Printf("main: Config :\n%v\n", out)

	completionStore, err := pebbledb.NewCompletionStore(cfg.InternalStoreFolder)
	if err != nil {
		return fmt.Errorf("creating completion store: %v", err)
	}
	defer completionStore.Close()

	items, err := worklist.ReadFile(cfg.WorkListFile, cfg.OwnerKey)
	if err != nil {
		return fmt.Errorf("reading work list: %v", err)
	}
	if len(items) == 0 {
		sLogger.Infow("Work list is empty, nothing to do", "file", cfg.WorkListFile)
		return nil
	}

	ledgerClient := rpc.NewClient(cfg.NodeRpcUrl)

	var sink transfer.ReportSink
	if len(cfg.Elastic.Addresses) > 0 {
		esClient, err := elasticsearch.NewClient(elasticsearch.Config{
			Addresses: cfg.Elastic.Addresses,
			Username:  cfg.Elastic.Username,
			Password:  cfg.Elastic.Password,
		})
		if err != nil {
			return errors.Wrap(err, "creating elasticsearch client")
		}
		sink = esreports.NewClient(esClient, cfg.Elastic.IndexName)
	}

	m := metrics.NewDistributionMetrics(cfg.MetricsNamespace)
	m.SetBatchSize(len(items))

	executor := transfer.NewExecutor(
		ledgerClient,
		wallet.NewSigner(),
		completionStore,
		cfg.RpcReadTimeout,
		cfg.SubmitWriteTimeout,
		cfg.DryRun,
		sLogger,
	)
	runner := transfer.NewRunner(executor, cfg.NrWorkers, sink, sLogger)

	http.HandleFunc("/v1/status", func(w http.ResponseWriter, r *http.Request) {
		records, err := completionStore.GetAllRecords()
		if err != nil {
			http.Error(w, fmt.Sprintf("getting completion records: %v", err), http.StatusInternalServerError)
			return
		}
		response := map[string]any{
			"completedRecords": len(records),
			"records":          records,
		}
		data, err := json.Marshal(response)
		if err != nil {
			http.Error(w, fmt.Sprintf("marshalling response: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, err = w.Write(data)
		if err != nil {
			http.Error(w, fmt.Sprintf("writing response: %v", err), http.StatusInternalServerError)
			return
		}
	})
	http.Handle("/metrics", promhttp.Handler())

	go func() {
		err := http.ListenAndServe(cfg.ServerListenAddr, nil)
		if err != nil {
			sLogger.Errorw("server error", "error", err)
		}
	}()

	runID := uuid.NewString()
	sLogger.Infow("Starting batch", "run", runID, "items", len(items), "dryRun", cfg.DryRun)

	summary, _, err := runner.Run(context.Background(), runID, items)
	m.AddSummary(summary)
	if err != nil {
		return errors.Wrap(err, "running batch")
	}

	records, err := completionStore.GetAllRecords()
	if err == nil {
		m.SetCompletedRecords(len(records))
	}

	if !summary.Clean() {
		return fmt.Errorf("batch finished with %d failed and %d unconfirmed items",
			summary.Failed, summary.Unconfirmed)
	}

	return nil
}
