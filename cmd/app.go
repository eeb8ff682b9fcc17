package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/property-cli/internal/config"
	"github.com/sells-group/property-cli/internal/form"
	"github.com/sells-group/property-cli/internal/history"
	"github.com/sells-group/property-cli/internal/report"
	"github.com/sells-group/property-cli/internal/resilience"
	"github.com/sells-group/property-cli/internal/session"
	"github.com/sells-group/property-cli/internal/store"
	"github.com/sells-group/property-cli/pkg/geocode"
	"github.com/sells-group/property-cli/pkg/propertyapi"
)

const (
	recordCacheTTL  = 24 * time.Hour
	geocodeCacheTTL = time.Hour
)

// appEnv holds the initialized clients and services shared by commands.
type appEnv struct {
	Store     store.Store
	Session   *session.Session
	API       *propertyapi.Client
	History   *history.Service
	Exporter  *report.Exporter
	Validator *form.Validator
	Geocoder  geocode.Client
	GeoCache  *geocode.Cache
}

// Close releases resources held by the environment.
func (a *appEnv) Close() {
	if a.GeoCache != nil {
		logGeocodeStats(zap.L(), a.GeoCache.Stats())
	}
	if a.Store != nil {
		_ = a.Store.Close()
	}
}

// logGeocodeStats records cache effectiveness for commands that geocoded.
func logGeocodeStats(log *zap.Logger, s geocode.CacheStats) {
	if s.Hits+s.Misses == 0 {
		return
	}
	log.Debug("geocode cache",
		zap.Int("entries", s.Entries),
		zap.Int("max_entries", s.MaxEntries),
		zap.Int64("hits", s.Hits),
		zap.Int64("misses", s.Misses),
		zap.Float64("hit_rate", s.HitRate),
	)
}

// initApp opens the local store and wires everything for the command
// named view. Callers should defer env.Close().
func initApp(ctx context.Context, view string) (*appEnv, error) {
	if err := cfg.Validate("api"); err != nil {
		return nil, err
	}

	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	if n, err := st.DeleteExpiredRecords(ctx); err != nil {
		zap.L().Warn("prune record cache", zap.Error(err))
	} else if n > 0 {
		zap.L().Debug("pruned record cache", zap.Int("removed", n))
	}

	return newApp(cfg, st, view, os.Stderr), nil
}

// newApp wires the services around st. Login redirects print a hint to
// notice when it is non-nil.
func newApp(c *config.Config, st store.Store, view string, notice io.Writer) *appEnv {
	nav := func(target string) {
		zap.L().Info("session expired", zap.String("redirect", target))
		if notice != nil {
			fmt.Fprintf(notice, "Session expired. Run `property-cli %s` to sign in again.\n", target)
		}
	}
	sess := session.New(st, nav, session.WithRecordPurger(st))
	sess.SetView(view)

	api := propertyapi.NewClient(c.API.BaseURL,
		propertyapi.WithTokenSource(sess),
		propertyapi.WithAuthFailureHandler(sess.OnUnauthorized),
		propertyapi.WithTimeout(time.Duration(c.API.TimeoutSecs)*time.Second),
		propertyapi.WithQueryTimeout(time.Duration(c.API.QueryTimeoutSecs)*time.Second),
		propertyapi.WithUserAgent(c.API.UserAgent),
	)
	sess.Bind(api.Auth)

	hist := history.NewService(api.Property,
		history.WithLimit(c.History.Limit),
		history.WithVersionSource(sess),
		history.WithRecordCache(st, sess, recordCacheTTL),
	)

	geoCache := geocode.NewCache(c.Geocode.CacheMaxEntries, geocodeCacheTTL)
	retry := resilience.DefaultRetryConfig()
	if c.Geocode.MaxAttempts > 0 {
		retry.MaxAttempts = c.Geocode.MaxAttempts
	}
	geoOpts := []geocode.Option{
		geocode.WithBaseURL(c.Geocode.BaseURL),
		geocode.WithUserAgent(c.Geocode.UserAgent),
		geocode.WithRateLimit(c.Geocode.RateLimit),
		geocode.WithSearchLimit(c.Geocode.SearchLimit),
		geocode.WithCache(geoCache),
		geocode.WithRetry(retry),
	}
	if codes := splitList(c.Geocode.CountryCodes); len(codes) > 0 {
		geoOpts = append(geoOpts, geocode.WithCountryCodes(codes...))
	}

	return &appEnv{
		Store:     st,
		Session:   sess,
		API:       api,
		History:   hist,
		Exporter:  report.NewExporter(c.Report.OutputDir, report.WithFacilityCap(c.Report.FacilityCap)),
		Validator: form.NewValidator(c.Form.ExtraCities...),
		Geocoder:  geocode.NewClient(geoOpts...),
		GeoCache:  geoCache,
	}
}

// requireUser restores the stored session and fails when nobody is signed in.
func (a *appEnv) requireUser(ctx context.Context) error {
	user, err := a.Session.Restore(ctx)
	if err != nil {
		return eris.Wrap(err, "restore session")
	}
	if user == nil {
		return eris.New("not signed in, run `property-cli login` first")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
