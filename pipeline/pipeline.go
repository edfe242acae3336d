// Package pipeline is the ingestion orchestrator: it consumes inbound
// channel messages from a bounded queue and drives each URL candidate
// through parse → resolve → scrape → tag → validate → persist.
package pipeline

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"deals-bot/affiliate"
	"deals-bot/database"
	"deals-bot/models"
	"deals-bot/normalizer"
	"deals-bot/parser"
	"deals-bot/registry"
	"deals-bot/resolver"
	"deals-bot/scraper"
	"deals-bot/utils"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Stage names used in logs and rejection reasons.
const (
	StageReceived  = "received"
	StageParsed    = "parsed"
	StageResolved  = "resolved"
	StageScraped   = "scraped"
	StageTagged    = "tagged"
	StageValidated = "validated"
	StagePersisted = "persisted"
)

// Pipeline owns the worker pool and the shared stages. The catalog store is
// the only shared mutable resource; every write goes through the keyed
// upsert in the database package.
type Pipeline struct {
	db       *sql.DB
	registry *registry.Registry
	resolver *resolver.Resolver
	scraper  *scraper.Scraper
	bounds   normalizer.Bounds

	queue           chan models.IngestedMessage
	workers         int
	hostConcurrency int

	hostMu   sync.Mutex
	hostSems map[string]chan struct{}

	wg sync.WaitGroup

	received  atomic.Int64
	persisted atomic.Int64
	rejected  atomic.Int64
	ignored   atomic.Int64
	unmapped  atomic.Int64
	dropped   atomic.Int64
}

// New builds a pipeline from the pipeline.* and normalizer.* config blocks.
func New(db *sql.DB, reg *registry.Registry) *Pipeline {
	return &Pipeline{
		db:              db,
		registry:        reg,
		resolver:        resolver.New(),
		scraper:         scraper.New(),
		queue:           make(chan models.IngestedMessage, viper.GetInt("pipeline.queue_size")),
		workers:         viper.GetInt("pipeline.workers"),
		hostConcurrency: viper.GetInt("pipeline.host_concurrency"),
		hostSems:        make(map[string]chan struct{}),
		bounds: normalizer.Bounds{
			Min: viper.GetFloat64("normalizer.min_price"),
			Max: viper.GetFloat64("normalizer.max_price"),
		},
	}
}

// Start launches the worker pool.
func (p *Pipeline) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for msg := range p.queue {
				p.ProcessMessage(context.Background(), msg)
			}
		}()
	}
	utils.Log.WithField("workers", p.workers).Info("Ingestion pipeline started")
}

// Stop drains the queue and waits for in-flight messages to finish.
// Callers must stop feeding Enqueue first.
func (p *Pipeline) Stop() {
	close(p.queue)
	p.wg.Wait()
	utils.Log.Info("Ingestion pipeline stopped")
}

// Enqueue hands a message to the worker pool without blocking the event
// callback. A full queue drops the message (at-least-once delivery upstream
// means it can be replayed) and reports false.
func (p *Pipeline) Enqueue(msg models.IngestedMessage) bool {
	select {
	case p.queue <- msg:
		return true
	default:
		p.dropped.Add(1)
		utils.Log.WithFields(logrus.Fields{
			"channel_id": msg.ChannelID,
			"message_id": msg.MessageID,
		}).Warn("Inbound queue full, message dropped")
		return false
	}
}

// ProcessMessage runs one inbound message through the pipeline. Candidates
// of a bundle run concurrently under the per-host limit; one candidate's
// failure never touches its siblings.
func (p *Pipeline) ProcessMessage(ctx context.Context, msg models.IngestedMessage) {
	p.received.Add(1)

	mapping, ok := p.registry.Lookup(msg.ChannelID)
	if !ok {
		p.unmapped.Add(1)
		utils.Log.WithFields(logrus.Fields{
			"channel_id": msg.ChannelID,
			"message_id": msg.MessageID,
			"stage":      StageReceived,
			"reason":     "routing miss: channel not in registry",
		}).Info("Message dropped")
		p.recordMessage(msg, models.OutcomeUnmapped)
		return
	}

	parsed := parser.Parse(msg.RawText)
	if len(parsed.URLs) == 0 {
		p.ignored.Add(1)
		utils.Log.WithFields(logrus.Fields{
			"channel_id": msg.ChannelID,
			"message_id": msg.MessageID,
			"stage":      StageParsed,
			"reason":     "no URLs in message",
		}).Info("Message ignored")
		p.recordMessage(msg, models.OutcomeIgnored)
		return
	}

	groupID := uuid.NewString()
	total := len(parsed.URLs)

	var wg sync.WaitGroup
	for i, rawURL := range parsed.URLs {
		wg.Add(1)
		go func(seq int, rawURL string) {
			defer wg.Done()
			p.processCandidate(ctx, mapping, msg, parsed, groupID, rawURL, seq, total)
		}(i+1, rawURL)
	}
	wg.Wait()

	p.recordMessage(msg, models.OutcomeProcessed)
}

// processCandidate drives one URL candidate through the remaining stages.
func (p *Pipeline) processCandidate(
	ctx context.Context,
	mapping models.ChannelMapping,
	msg models.IngestedMessage,
	parsed models.ParsedMessage,
	groupID, rawURL string,
	seq, total int,
) {
	log := utils.Log.WithFields(logrus.Fields{
		"channel_id": msg.ChannelID,
		"message_id": msg.MessageID,
		"url":        rawURL,
		"sequence":   seq,
	})

	// Resolve shortened/tracking links to the canonical merchant URL.
	resolved, err := p.resolveLimited(ctx, rawURL)
	if err != nil {
		p.reject(log, StageResolved, err.Error())
		return
	}

	// Scrape the merchant page, bounded per external host.
	meta, err := p.scrapeLimited(ctx, resolved.CanonicalURL)
	if err != nil {
		p.reject(log, StageScraped, err.Error())
		return
	}

	// Apply the first satisfiable affiliate rule. No satisfiable rule is
	// not fatal: the untagged canonical URL is still useful for review.
	link, tagged := affiliate.Apply(resolved.CanonicalURL, mapping.Networks)
	if !tagged {
		log.WithField("stage", StageTagged).Info("No satisfiable network rule, persisting untagged")
	}

	result, err := normalizer.Normalize(meta, normalizer.Hints{
		Title:         parsed.TitleHint,
		Price:         parsed.PriceHint,
		OriginalPrice: parsed.OriginalPriceHint,
	}, p.bounds)
	if err != nil {
		p.reject(log, StageValidated, err.Error())
		return
	}

	now := time.Now()
	rec := models.ProductRecord{
		DedupKey:            DedupKey(msg.ChannelID, msg.MessageID, seq),
		DestinationPage:     mapping.DestinationPage,
		Name:                result.Name,
		CurrentPrice:        result.CurrentPrice,
		OriginalPrice:       result.OriginalPrice,
		DiscountPct:         result.DiscountPct,
		ImageURL:            stringValue(meta.ImageURL),
		Rating:              meta.Rating,
		ReviewCount:         meta.ReviewCount,
		AffiliateURL:        link.FinalURL,
		AffiliateTagApplied: tagged,
		NetworkID:           link.NetworkID,
		MessageGroupID:      groupID,
		SequenceInGroup:     seq,
		TotalInGroup:        total,
		SourceChannelID:     msg.ChannelID,
		SourceMessageID:     msg.MessageID,
		Status:              models.StatusActive,
		CreatedAt:           now.Unix(),
		UpdatedAt:           now.Unix(),
		ExpiresAt:           now.Add(p.registry.TTL(mapping.DestinationPage)).Unix(),
	}

	if err := database.UpsertProduct(p.db, rec); err != nil {
		p.reject(log, StagePersisted, err.Error())
		return
	}

	p.persisted.Add(1)
	log.WithFields(logrus.Fields{
		"stage": StagePersisted,
		"page":  mapping.DestinationPage,
		"name":  result.Name,
	}).Info("Product record persisted")
}

// reject logs a terminal per-candidate failure with enough context for
// replay and diagnosis. Nothing here is fatal to the process.
func (p *Pipeline) reject(log *logrus.Entry, stage, reason string) {
	p.rejected.Add(1)
	log.WithFields(logrus.Fields{
		"stage":  stage,
		"reason": reason,
	}).Info("Candidate rejected")
}

func (p *Pipeline) recordMessage(msg models.IngestedMessage, outcome string) {
	if err := database.RecordMessage(p.db, msg, outcome); err != nil {
		utils.Log.WithFields(logrus.Fields{
			"channel_id": msg.ChannelID,
			"message_id": msg.MessageID,
		}).WithError(err).Error("Failed to record message audit row")
	}
}

// resolveLimited and scrapeLimited wrap the HTTP stages in the per-host
// concurrency limit so no single merchant or shortener gets hammered.
func (p *Pipeline) resolveLimited(ctx context.Context, rawURL string) (models.ResolvedURL, error) {
	release := p.acquireHost(rawURL)
	defer release()
	return p.resolver.Resolve(ctx, rawURL)
}

func (p *Pipeline) scrapeLimited(ctx context.Context, canonicalURL string) (models.ScrapedMetadata, error) {
	release := p.acquireHost(canonicalURL)
	defer release()
	return p.scraper.Scrape(ctx, canonicalURL)
}

// acquireHost blocks until a slot for the URL's host is free and returns
// the release func. Unparseable URLs share the "" slot.
func (p *Pipeline) acquireHost(rawURL string) func() {
	host := ""
	if parsed, err := url.Parse(rawURL); err == nil {
		host = parsed.Hostname()
	}

	p.hostMu.Lock()
	sem, ok := p.hostSems[host]
	if !ok {
		sem = make(chan struct{}, p.hostConcurrency)
		p.hostSems[host] = sem
	}
	p.hostMu.Unlock()

	sem <- struct{}{}
	return func() { <-sem }
}

// DedupKey derives the deterministic per-candidate key from the source
// channel, message and bundle position. Reprocessing the same message hits
// the same keys, making persistence idempotent.
func DedupKey(channelID, messageID string, seq int) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", channelID, messageID, seq)))
	return hex.EncodeToString(sum[:])
}

// Stats is a point-in-time snapshot for the status command.
type Stats struct {
	QueueDepth int
	Received   int64
	Persisted  int64
	Rejected   int64
	Ignored    int64
	Unmapped   int64
	Dropped    int64
}

// Stats returns the current counters.
func (p *Pipeline) Stats() Stats {
	return Stats{
		QueueDepth: len(p.queue),
		Received:   p.received.Load(),
		Persisted:  p.persisted.Load(),
		Rejected:   p.rejected.Load(),
		Ignored:    p.ignored.Load(),
		Unmapped:   p.unmapped.Load(),
		Dropped:    p.dropped.Load(),
	}
}

func stringValue(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
