package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"deals-bot/database"
	"deals-bot/models"
	"deals-bot/registry"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// merchantMux serves the fake merchant/shortener used by the tests.
func merchantMux(t *testing.T) (*http.ServeMux, *httptest.Server) {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return mux, srv
}

func newTestPipeline(t *testing.T) (*Pipeline, *sql.DB) {
	t.Helper()

	viper.Set("pipeline.workers", 2)
	viper.Set("pipeline.queue_size", 16)
	viper.Set("pipeline.host_concurrency", 2)
	viper.Set("resolver.max_hops", 10)
	viper.Set("resolver.timeout_seconds", 5)
	viper.Set("resolver.max_attempts", 2)
	viper.Set("resolver.extra_shorteners", []string{"127.0.0.1"})
	viper.Set("scraper.timeout_seconds", 5)
	viper.Set("scraper.max_attempts", 2)
	viper.Set("normalizer.min_price", 1)
	viper.Set("normalizer.max_price", 10000000)
	viper.Set("catalog.default_ttl_hours", 24)
	viper.Set("channels", map[string]any{
		"111111111111111111": map[string]any{
			"page": "top-deals",
			"networks": []any{
				map[string]any{
					"network_id":  "test-net",
					"tag_type":    "parameter",
					"param_name":  "subid",
					"param_value": "deals",
				},
			},
		},
		"222222222222222222": map[string]any{
			"page": "fashion",
			"networks": []any{
				map[string]any{
					"network_id":  "test-net",
					"tag_type":    "parameter",
					"param_name":  "subid",
					"param_value": "fashion",
				},
			},
		},
	})

	reg, err := registry.Load()
	require.NoError(t, err)

	db, err := database.InitDB(filepath.Join(t.TempDir(), "catalog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	for _, page := range reg.Pages() {
		require.NoError(t, database.EnsurePageTable(db, page))
	}

	return New(db, reg), db
}

func message(channelID, messageID, text string) models.IngestedMessage {
	return models.IngestedMessage{
		ChannelID:  channelID,
		MessageID:  messageID,
		RawText:    text,
		ReceivedAt: time.Now(),
	}
}

func TestScenarioPricesFromMessageText(t *testing.T) {
	mux, srv := merchantMux(t)
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		// Page has a name but no extractable price; prices come from the text.
		fmt.Fprint(w, `<html><head><meta property="og:title" content="boAt Rockerz 450"></head></html>`)
	})

	p, db := newTestPipeline(t)
	msg := message("111111111111111111", "msg-a",
		"Sale price Rs. 87 Regular price Rs. 399 "+srv.URL+"/product")
	p.ProcessMessage(context.Background(), msg)

	records, err := database.ListActive(db, "top-deals")
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "boAt Rockerz 450", rec.Name)
	assert.Equal(t, 87.0, rec.CurrentPrice)
	require.NotNil(t, rec.OriginalPrice)
	assert.Equal(t, 399.0, *rec.OriginalPrice)
	require.NotNil(t, rec.DiscountPct)
	assert.Equal(t, 78, *rec.DiscountPct)
	assert.True(t, rec.AffiliateTagApplied)
	assert.Contains(t, rec.AffiliateURL, "subid=deals")
	assert.Equal(t, "111111111111111111", rec.SourceChannelID)
}

func TestScenarioResolvedButNoPrice(t *testing.T) {
	mux, srv := merchantMux(t)
	mux.HandleFunc("/s/abc", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/s/def", http.StatusFound)
	})
	mux.HandleFunc("/s/def", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/s/ghi", http.StatusFound)
	})
	mux.HandleFunc("/s/ghi", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/noprice", http.StatusFound)
	})
	mux.HandleFunc("/noprice", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Mystery Gadget"></head></html>`)
	})

	p, db := newTestPipeline(t)
	p.ProcessMessage(context.Background(), message("111111111111111111", "msg-b", srv.URL+"/s/abc"))

	// Resolution succeeded (we got all the way to validation) but the
	// candidate was rejected for having no price.
	records, err := database.ListActive(db, "top-deals")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(1), p.Stats().Rejected)

	outcome, err := database.GetMessageOutcome(db, "111111111111111111", "msg-b")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeProcessed, outcome)
}

func TestScenarioBundleSharesGroup(t *testing.T) {
	mux, srv := merchantMux(t)
	for _, p := range []struct{ path, name, price string }{
		{"/p1", "Gadget One", "199"},
		{"/p2", "Gadget Two", "299"},
	} {
		name, price := p.name, p.price
		mux.HandleFunc(p.path, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprintf(w, `<html><head><meta property="og:title" content="%s"><meta property="product:price:amount" content="%s"></head></html>`, name, price)
		})
	}

	p, db := newTestPipeline(t)
	p.ProcessMessage(context.Background(), message("111111111111111111", "msg-c",
		"Combo!\n"+srv.URL+"/p1\n"+srv.URL+"/p2"))

	records, err := database.ListActive(db, "top-deals")
	require.NoError(t, err)
	require.Len(t, records, 2)

	bySeq := map[int]models.ProductRecord{}
	for _, rec := range records {
		bySeq[rec.SequenceInGroup] = rec
	}
	require.Contains(t, bySeq, 1)
	require.Contains(t, bySeq, 2)
	assert.Equal(t, "Gadget One", bySeq[1].Name)
	assert.Equal(t, "Gadget Two", bySeq[2].Name)
	assert.Equal(t, bySeq[1].MessageGroupID, bySeq[2].MessageGroupID)
	assert.Equal(t, 2, bySeq[1].TotalInGroup)
	assert.Equal(t, 2, bySeq[2].TotalInGroup)
}

func TestScenarioRedeliveryIsIdempotent(t *testing.T) {
	mux, srv := merchantMux(t)
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Stable Product"><meta property="product:price:amount" content="499"></head></html>`)
	})

	p, db := newTestPipeline(t)
	msg := message("111111111111111111", "msg-d", srv.URL+"/product")

	p.ProcessMessage(context.Background(), msg)
	p.ProcessMessage(context.Background(), msg)

	records, err := database.ListActive(db, "top-deals")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.GreaterOrEqual(t, records[0].UpdatedAt, records[0].CreatedAt)
}

func TestScenarioRoutingMiss(t *testing.T) {
	p, db := newTestPipeline(t)

	p.ProcessMessage(context.Background(), message("999999999999999999", "msg-e", "https://example.com/p"))

	records, err := database.ListActive(db, "top-deals")
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Equal(t, int64(1), p.Stats().Unmapped)

	outcome, err := database.GetMessageOutcome(db, "999999999999999999", "msg-e")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeUnmapped, outcome)
}

func TestScenarioRoutingCorrectness(t *testing.T) {
	mux, srv := merchantMux(t)
	mux.HandleFunc("/dress", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Summer Dress"><meta property="product:price:amount" content="999"></head></html>`)
	})

	p, db := newTestPipeline(t)
	p.ProcessMessage(context.Background(), message("222222222222222222", "msg-f", srv.URL+"/dress"))

	fashion, err := database.ListActive(db, "fashion")
	require.NoError(t, err)
	require.Len(t, fashion, 1)
	assert.Contains(t, fashion[0].AffiliateURL, "subid=fashion")

	topDeals, err := database.ListActive(db, "top-deals")
	require.NoError(t, err)
	assert.Empty(t, topDeals)
}

func TestScenarioNoURLsIgnored(t *testing.T) {
	p, db := newTestPipeline(t)

	p.ProcessMessage(context.Background(), message("111111111111111111", "msg-g", "Good morning! Deals at noon."))

	assert.Equal(t, int64(1), p.Stats().Ignored)
	outcome, err := database.GetMessageOutcome(db, "111111111111111111", "msg-g")
	require.NoError(t, err)
	assert.Equal(t, models.OutcomeIgnored, outcome)
}

func TestScenarioFailedCandidateDoesNotAffectSiblings(t *testing.T) {
	mux, srv := merchantMux(t)
	mux.HandleFunc("/good", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Good Product"><meta property="product:price:amount" content="199"></head></html>`)
	})
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	p, db := newTestPipeline(t)
	p.ProcessMessage(context.Background(), message("111111111111111111", "msg-h",
		srv.URL+"/good\n"+srv.URL+"/bad"))

	records, err := database.ListActive(db, "top-deals")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Good Product", records[0].Name)
	assert.Equal(t, int64(1), p.Stats().Rejected)
}

func TestDedupKeyIsDeterministic(t *testing.T) {
	a := DedupKey("111", "msg-1", 1)
	b := DedupKey("111", "msg-1", 1)
	c := DedupKey("111", "msg-1", 2)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 64)
}

func TestEnqueueAndWorkerDrain(t *testing.T) {
	mux, srv := merchantMux(t)
	mux.HandleFunc("/product", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head><meta property="og:title" content="Queued Product"><meta property="product:price:amount" content="99"></head></html>`)
	})

	p, db := newTestPipeline(t)
	p.Start()
	require.True(t, p.Enqueue(message("111111111111111111", "msg-q", srv.URL+"/product")))
	p.Stop() // drains the queue before returning

	records, err := database.ListActive(db, "top-deals")
	require.NoError(t, err)
	assert.Len(t, records, 1)
}
