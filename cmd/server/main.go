package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/alberthiggs/folio/internal/cfg"
	"github.com/alberthiggs/folio/internal/cms"
	"github.com/alberthiggs/folio/internal/health"
	"github.com/alberthiggs/folio/internal/httpmw"
	"github.com/alberthiggs/folio/internal/httpserver"
	"github.com/alberthiggs/folio/internal/log"
	"github.com/alberthiggs/folio/internal/metrics"
	"github.com/alberthiggs/folio/internal/opshttp"
	"github.com/alberthiggs/folio/internal/otelx"
	"github.com/alberthiggs/folio/internal/prof"
	"github.com/alberthiggs/folio/internal/ratelimit"
	"github.com/alberthiggs/folio/internal/relay"
	"github.com/alberthiggs/folio/internal/secrets"
	"github.com/alberthiggs/folio/internal/site"
	"github.com/alberthiggs/folio/internal/sitehandler"
	"github.com/alberthiggs/folio/internal/sitehttp"
	v "github.com/alberthiggs/folio/internal/version"
	"github.com/alberthiggs/folio/internal/webassets"
)

// drainPeriod is how long readiness fails before listeners close, so the
// load balancer stops routing here first.
const drainPeriod = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	// Parse config from flags and env
	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.String())
		os.Exit(0)
	}

	// dotenv seeds the environment for local runs; real env vars win
	if _, err := cfg.LoadDotEnv(conf.EnvFile); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}
	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Setup logging
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:               v.AppName,
		Version:           vi.Version,
		Commit:            vi.Commit,
		BuildID:           vi.BuildID,
		Level:             lvl,
		StacktraceLevel:   stackLvl,
		JSON:              conf.LogJSON,
		MaxErrorLinks:     conf.MaxErrorLinks,
		IncludeErrorLinks: conf.IncludeErrorLinks,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildID,
		"build_date", vi.BuildDate,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"content_source", conf.ContentSource,
		"fetch_strategy", conf.FetchStrategy,
		"cms_environment", conf.CMSEnvironment,
		"content_s3_bucket", conf.ContentS3Bucket,
		"asset_timeout", conf.AssetTimeout,
		"resume_timeout", conf.ResumeTimeout,
		"site_url", conf.SiteURL,
		"analytics", conf.GAMeasurementID != "",
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"trace_sample", conf.TraceSample,
	)

	// Setup pyroscope profiling
	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(err == nil && conf.EnablePyroscope)
	defer func() { stopProf() }()

	// Insecure is true because traces go to a collector on localhost
	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Insecure:  true,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	// content source and aggregator
	src, err := newSource(ctx, L, conf)
	if err != nil {
		L.Error(ctx, err, "failed to configure content source", "content_source", conf.ContentSource)
		os.Exit(1)
	}
	strategy, _ := cms.ParseStrategy(conf.FetchStrategy)
	agg, err := cms.New(cms.Options{
		Source:   src,
		Strategy: strategy,
		Observer: m,
		Logger:   L,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create content aggregator")
		os.Exit(1)
	}

	rl, err := relay.New(relay.Options{
		Content:        agg,
		AssetTimeout:   conf.AssetTimeout,
		ResumeTimeout:  conf.ResumeTimeout,
		ResumeFilename: conf.ResumeFilename,
		Observer:       m,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create asset relay")
		os.Exit(1)
	}

	pages, err := site.New(site.Options{
		Content:         agg,
		Templates:       webassets.TemplatesFS(),
		SiteURL:         conf.SiteURL,
		GAMeasurementID: conf.GAMeasurementID,
		Name:            conf.SiteName,
		Description:     conf.SiteDescription,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create site pages")
		os.Exit(1)
	}
	if conf.GAMeasurementID != "" && !pages.AnalyticsEnabled() {
		L.Warn(ctx, "ignoring malformed analytics measurement id", "ga_measurement_id", conf.GAMeasurementID)
	}

	static, err := sitehandler.New(&sitehandler.Options{
		Static:   webassets.StaticFS(),
		NotFound: httpmw.Scope("not_found")(http.HandlerFunc(pages.NotFound)),
	})
	if err != nil {
		L.Error(ctx, err, "failed to create static handler")
		os.Exit(1)
	}

	routes := sitehttp.New(pages, rl, static)

	// setup toggle for server shutdown
	var gate health.ShutdownGate
	readiness := health.All(gate.Probe())

	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
		// increment prometheus counter on each denied request
		ratelimit.WithOnDenied(func(ip string) {
			m.IncRateLimitDenied()
		}),
		// only log the first denial until the visitor is evicted
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "ip", ip)
		}),
		ratelimit.WithOnCapacity(func(ip string) {
			m.IncRateLimitCapacity()
			L.Warn(ctx, "rate limit capacity reached, rejecting new visitors until some are evicted", "ip", ip)
		}),
	)

	siteHTTPStop, err := httpserver.Start(ctx, httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		UseRecoverMW: true,
		OnPanic:      m.IncHTTPPanic,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		ClientIPOpts: httpmw.ClientIPOptions{TrustedHops: conf.TrustedHops},
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		APIRoutes:    routes.RegisterRoutes,
		Draining:     gate.Draining,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start site http listener port")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// ops listener rejects public peers in case the security group is ever
	// misconfigured
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:         conf.AdminPort,
		Metrics:      m.Handler(),
		EnablePprof:  conf.EnablePprof,
		Health:       health.Fixed(true, ""),
		Readiness:    readiness,
		UseRecoverMW: true,
		OnPanic:      m.IncHTTPPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	// wait for ctrl+c / sigterm
	<-ctx.Done()
	stop()

	L.Info(context.Background(), "shutdown signal received")

	// fail readiness so the load balancer drains us
	gate.Set("draining")
	L.Info(context.Background(), "shutdown gate closed, draining", "period", drainPeriod)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainPeriod):
		L.Info(context.Background(), "drain period complete")
	case <-forceCh:
		L.Warn(context.Background(), "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "site http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(shutdownCtx, err, "otel shutdown")
	}
	stopProf()

	L.Info(context.Background(), "shutdown complete")
}

// newSource builds the configured content source. AWS config is loaded
// only when S3, SSM or KMS is actually needed.
func newSource(ctx context.Context, L log.Logger, conf cfg.App) (cms.Source, error) {
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	switch conf.ContentSource {
	case cfg.SourceS3:
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		return cms.NewS3Source(cms.S3Config{
			Client: s3.NewFromConfig(ac),
			Bucket: conf.ContentS3Bucket,
			Prefix: conf.ContentS3Prefix,
		})
	}

	tokenSrc := secrets.Source{
		Literal:       conf.CMSAccessToken,
		SSMParam:      conf.CMSAccessTokenSSM,
		KMSCiphertext: conf.CMSAccessTokenKMSBlob,
	}
	var resolver secrets.Resolver
	if tokenSrc.Kind() == "ssm" || tokenSrc.Kind() == "kms" {
		ac, err := loadAWS()
		if err != nil {
			return nil, err
		}
		resolver = secrets.Resolver{SSM: ssm.NewFromConfig(ac), KMS: kms.NewFromConfig(ac)}
	}
	token, err := resolver.Resolve(ctx, tokenSrc)
	if err != nil {
		return nil, fmt.Errorf("resolve cms access token: %w", err)
	}
	L.Info(ctx, "cms access token resolved", "token_source", tokenSrc.Kind())

	return cms.NewGraphQLSource(cms.GraphQLConfig{
		SpaceID:     conf.CMSSpaceID,
		AccessToken: token,
		Environment: conf.CMSEnvironment,
		Endpoint:    conf.CMSEndpoint,
	})
}

func notifySystemd() error {
	// systemd sets NOTIFY_SOCKET when the unit is Type=notify
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify failed: dial failed: %w", err)
	}
	_, _ = conn.Write([]byte("READY=1"))
	if err := conn.Close(); err != nil {
		return fmt.Errorf("systemd notify failed: close failed: %w", err)
	}
	return nil
}
