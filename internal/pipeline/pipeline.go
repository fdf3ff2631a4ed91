// Package pipeline orchestrates one harvest run as a sequence of durable
// steps tracked through the task service. Each step reports in_progress,
// completed or failed before the run moves on, so a crashed run leaves an
// inspectable trail.
package pipeline

import (
	"context"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/salonscope/harvest-cli/internal/config"
	"github.com/salonscope/harvest-cli/internal/export"
	"github.com/salonscope/harvest-cli/internal/model"
	"github.com/salonscope/harvest-cli/internal/relevance"
	"github.com/salonscope/harvest-cli/internal/scrape"
	"github.com/salonscope/harvest-cli/internal/store"
	"github.com/salonscope/harvest-cli/internal/task"
	"github.com/salonscope/harvest-cli/pkg/websearch"
)

// enrichWorkers bounds concurrent search lookups during social enrichment.
const enrichWorkers = 4

// HarvestSteps is the fixed step plan registered for every harvest task.
var HarvestSteps = []model.StepDefinition{
	{StepID: "prepare", Name: "Prepare"},
	{StepID: "crawl-listings", Name: "Crawl listings"},
	{StepID: "collect-details", Name: "Collect details"},
	{StepID: "collect-social", Name: "Collect social handles"},
	{StepID: "compute-duration", Name: "Compute duration"},
	{StepID: "export-results", Name: "Export results"},
	{StepID: "persist-summary", Name: "Persist summary"},
}

// Trigger is the event payload that starts a harvest run.
type Trigger struct {
	ID      string `json:"id"`
	AreaURL string `json:"areaUrl"`
}

// Pipeline wires the crawl, enrichment, export and persistence stages
// behind a single Run entry point.
type Pipeline struct {
	cfg       config.PipelineConfig
	exportCfg config.ExportConfig
	paginator *scrape.Paginator
	details   *scrape.DetailExtractor
	search    websearch.Provider
	tasks     *task.Service
	store     store.Store
	sink      export.Sink
	log       *zap.Logger
}

// New builds a pipeline. A nil logger falls back to a no-op logger.
func New(
	cfg config.PipelineConfig,
	exportCfg config.ExportConfig,
	paginator *scrape.Paginator,
	details *scrape.DetailExtractor,
	search websearch.Provider,
	tasks *task.Service,
	st store.Store,
	sink export.Sink,
	log *zap.Logger,
) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		cfg:       cfg,
		exportCfg: exportCfg,
		paginator: paginator,
		details:   details,
		search:    search,
		tasks:     tasks,
		store:     st,
		sink:      sink,
		log:       log,
	}
}

// Run executes a full harvest for the trigger. The task record is created
// (or reattached to, for a duplicate event id) before any validation so that
// even an invalid trigger leaves a failed task behind.
func (p *Pipeline) Run(ctx context.Context, trig Trigger) error {
	meta := map[string]string{"areaUrl": trig.AreaURL}
	if err := p.tasks.Create(ctx, trig.ID, model.TaskTypeHarvest, HarvestSteps, meta); err != nil {
		return eris.Wrap(err, "pipeline: create task")
	}

	if strings.TrimSpace(trig.AreaURL) == "" {
		err := eris.New("pipeline: area url is required")
		if cerr := p.tasks.Complete(ctx, trig.ID, false, err.Error()); cerr != nil {
			p.log.Warn("failed to close task", zap.String("externalId", trig.ID), zap.Error(cerr))
		}
		return err
	}

	if err := p.run(ctx, trig); err != nil {
		if cerr := p.tasks.Complete(ctx, trig.ID, false, err.Error()); cerr != nil {
			p.log.Warn("failed to close task", zap.String("externalId", trig.ID), zap.Error(cerr))
		}
		return err
	}

	if err := p.tasks.Complete(ctx, trig.ID, true, ""); err != nil {
		return eris.Wrap(err, "pipeline: complete task")
	}
	return nil
}

func (p *Pipeline) run(ctx context.Context, trig Trigger) error {
	var (
		start    time.Time
		stubs    []model.ListingStub
		results  []model.SalonDetails
		duration float64
		info     *model.ExportInfo
	)

	err := p.runStep(ctx, trig.ID, "prepare", func() error {
		start = time.Now()
		p.log.Info("harvest started",
			zap.String("externalId", trig.ID),
			zap.String("areaUrl", trig.AreaURL))
		return nil
	})
	if err != nil {
		return err
	}

	err = p.runStep(ctx, trig.ID, "crawl-listings", func() error {
		stubs = p.paginator.AllListings(ctx, trig.AreaURL)
		p.log.Info("listings collected",
			zap.String("externalId", trig.ID),
			zap.Int("count", len(stubs)))
		return ctx.Err()
	})
	if err != nil {
		return err
	}

	err = p.runStep(ctx, trig.ID, "collect-details", func() error {
		for _, stub := range stubs {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			rec, derr := p.details.Extract(ctx, stub)
			if derr != nil {
				p.log.Warn("detail extraction degraded",
					zap.String("salonUrl", stub.URL),
					zap.Error(derr))
			}
			results = append(results, rec)
		}
		return nil
	})
	if err != nil {
		return err
	}

	err = p.runStep(ctx, trig.ID, "collect-social", func() error {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(enrichWorkers)
		for i := range results {
			g.Go(func() error {
				p.enrichSocial(gctx, &results[i])
				return gctx.Err()
			})
		}
		return g.Wait()
	})
	if err != nil {
		return err
	}

	err = p.runStep(ctx, trig.ID, "compute-duration", func() error {
		duration = math.Round(time.Since(start).Seconds()*10) / 10
		return nil
	})
	if err != nil {
		return err
	}

	err = p.runStep(ctx, trig.ID, "export-results", func() error {
		var eerr error
		info, eerr = p.exportResults(ctx, trig, results)
		return eerr
	})
	if err != nil {
		return err
	}

	return p.runStep(ctx, trig.ID, "persist-summary", func() error {
		harvest := model.Harvest{
			ExternalID: trig.ID,
			AreaURL:    trig.AreaURL,
			Results:    capResults(results, p.cfg.MaxStoredResults),
			Duration:   duration,
			TotalCount: len(results),
			ExportInfo: info,
			CreatedAt:  time.Now().UTC(),
		}
		if serr := p.store.SaveHarvest(ctx, harvest); serr != nil {
			return eris.Wrap(serr, "pipeline: save harvest")
		}
		p.log.Info("harvest saved",
			zap.String("externalId", trig.ID),
			zap.Int("totalCount", harvest.TotalCount),
			zap.Float64("duration", duration))
		return nil
	})
}

// runStep brackets fn with task-step status updates. A step failure fails
// the step record and is returned wrapped with the step id.
func (p *Pipeline) runStep(ctx context.Context, externalID, stepID string, fn func() error) error {
	if err := p.tasks.UpdateStep(ctx, externalID, stepID, model.StepStatusInProgress, ""); err != nil {
		return eris.Wrapf(err, "pipeline: start step %s", stepID)
	}
	if err := fn(); err != nil {
		if uerr := p.tasks.UpdateStep(ctx, externalID, stepID, model.StepStatusFailed, err.Error()); uerr != nil {
			p.log.Warn("failed to mark step failed",
				zap.String("stepId", stepID), zap.Error(uerr))
		}
		return eris.Wrapf(err, "pipeline: step %s", stepID)
	}
	if err := p.tasks.UpdateStep(ctx, externalID, stepID, model.StepStatusCompleted, ""); err != nil {
		return eris.Wrapf(err, "pipeline: finish step %s", stepID)
	}
	return nil
}

// enrichSocial runs the search queries for one salon and keeps the first
// candidate whose relevance clears the configured minimum. Search failures
// only log; the record just stays un-enriched.
func (p *Pipeline) enrichSocial(ctx context.Context, rec *model.SalonDetails) {
	queries := relevance.SearchQueries(rec.Name)
	if rec.Address != "" {
		queries = append(queries, relevance.LocationQuery(rec.Name, rec.Address))
	}
	rec.SearchQueries = queries

	for _, q := range queries {
		hits, err := p.search.Search(ctx, q)
		if err != nil {
			p.log.Warn("search failed", zap.String("query", q), zap.Error(err))
			continue
		}
		for _, hit := range hits {
			url, score, ok := relevance.ExtractFromSearchResult(hit, rec.Name)
			if ok && score > p.cfg.RelevanceMin {
				rec.InstagramURL = url
				return
			}
		}
	}
}

// exportResults renders every configured format and pushes the files to the
// sink. A render failure aborts the step; an upload failure only degrades
// the export info so the harvest summary still records what happened.
func (p *Pipeline) exportResults(ctx context.Context, trig Trigger, results []model.SalonDetails) (*model.ExportInfo, error) {
	timestamp := strings.NewReplacer(":", "-", ".", "-").
		Replace(time.Now().UTC().Format("2006-01-02T15:04:05Z"))
	info := &model.ExportInfo{RecordCount: len(results)}

	for _, format := range p.exportCfg.Formats {
		var (
			data        []byte
			contentType string
			err         error
		)
		switch format {
		case "csv":
			data, err = export.CSV(results)
			contentType = "text/csv; charset=utf-8"
		case "xlsx":
			data, err = export.XLSX(results)
			contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		default:
			p.log.Warn("unknown export format", zap.String("format", format))
			continue
		}
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: render %s", format)
		}

		fileName := "harvest-" + timestamp + "." + format
		storageID, perr := p.sink.Put(fileName, contentType, data)
		if perr != nil {
			p.log.Warn("export upload failed",
				zap.String("fileName", fileName), zap.Error(perr))
			info.Error = perr.Error()
			continue
		}

		switch format {
		case "csv":
			info.CSVStorageID = storageID
			info.FileName = fileName
		case "xlsx":
			info.XLSXStorageID = storageID
		}

		file := model.ExportFile{
			FileName:    fileName,
			ContentType: contentType,
			Size:        len(data),
			StorageID:   storageID,
			Metadata: map[string]string{
				"eventId":     trig.ID,
				"areaUrl":     trig.AreaURL,
				"recordCount": strconv.Itoa(len(results)),
			},
			CreatedAt: time.Now().UTC(),
		}
		if serr := p.store.SaveFile(ctx, file); serr != nil {
			p.log.Warn("failed to record export file",
				zap.String("fileName", fileName), zap.Error(serr))
		}
	}

	return info, nil
}

func capResults(results []model.SalonDetails, max int) []model.SalonDetails {
	if max > 0 && len(results) > max {
		return results[:max]
	}
	return results
}
