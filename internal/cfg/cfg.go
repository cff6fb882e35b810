// Package cfg declares the server's flags and their validation.
//
// Every flag can also be set from the environment: flag "foo-bar" maps to
// FOLIO_FOO_BAR. A dotenv file, when present, seeds the environment first,
// so the precedence is cli > process env > dotenv file > default.
package cfg

import (
	"errors"
	"flag"
	"fmt"
	iofs "io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/alberthiggs/folio/internal/log"
)

const EnvPrefix = "FOLIO_"

// MaxUpstreamTimeout bounds the relay timeouts. It stays below the public
// listener's 30s write timeout so the relay error reaches the client
// before the server cuts the connection.
const MaxUpstreamTimeout = 25 * time.Second

const (
	SourceGraphQL = "graphql"
	SourceS3      = "s3"

	StrategyCombined = "combined"
	StrategySections = "sections"
)

type App struct {
	LogJSON           bool
	LogLevel          string
	StacktraceLevel   string
	IncludeErrorLinks bool
	MaxErrorLinks     int

	HTTPPort    int
	AdminPort   int
	TrustedHops int
	EnablePprof bool

	EnableTracing   bool
	OTLPEndpoint    string
	TraceSample     float64
	EnablePyroscope bool
	PyroServer      string
	PyroTenantID    string

	RateLimitRPS   float64
	RateLimitBurst int

	EnvFile string

	ContentSource         string
	FetchStrategy         string
	CMSSpaceID            string
	CMSEnvironment        string
	CMSEndpoint           string
	CMSAccessToken        string
	CMSAccessTokenSSM     string
	CMSAccessTokenKMSBlob string
	ContentS3Bucket       string
	ContentS3Prefix       string

	AssetTimeout   time.Duration
	ResumeTimeout  time.Duration
	ResumeFilename string

	SiteURL         string
	SiteName        string
	SiteDescription string
	GAMeasurementID string
}

// Register binds every field to fs with its default.
func Register(fs *flag.FlagSet, c *App) {
	fs.BoolVar(&c.LogJSON, "log-json", true, "JSON logs (true) or logfmt (false)")
	fs.StringVar(&c.LogLevel, "log-level", "info", "debug|info|warn|error")
	fs.StringVar(&c.StacktraceLevel, "stacktrace-level", "error", "debug|info|warn|error")
	fs.BoolVar(&c.IncludeErrorLinks, "include-error-links", true, "include error links in log records")
	fs.IntVar(&c.MaxErrorLinks, "max-error-links", 5, "max error chain depth (1..64)")

	fs.IntVar(&c.HTTPPort, "http-port", 8080, "public listen TCP port (1..65535)")
	fs.IntVar(&c.AdminPort, "admin-port", 9000, "ops listen TCP port (1..65535)")
	fs.IntVar(&c.TrustedHops, "trusted-hops", 0, "reverse proxies in front of the server whose X-Forwarded-For is trusted (0..5)")
	fs.BoolVar(&c.EnablePprof, "enable-pprof", true, "serve pprof on the ops port")

	fs.BoolVar(&c.EnableTracing, "enable-tracing", false, "export OTLP traces to -otlp-endpoint")
	fs.StringVar(&c.OTLPEndpoint, "otlp-endpoint", "", "OTLP gRPC endpoint (host:port)")
	fs.Float64Var(&c.TraceSample, "trace-sample", 0.0, "trace sampling ratio (0..1)")
	fs.BoolVar(&c.EnablePyroscope, "enable-pyroscope", false, "push profiles to -pyro-server")
	fs.StringVar(&c.PyroServer, "pyro-server", "", "pyroscope server url")
	fs.StringVar(&c.PyroTenantID, "pyro-tenant", "", "pyroscope tenant (X-Scope-OrgID)")

	fs.Float64Var(&c.RateLimitRPS, "ratelimit-rps", 10, "per-ip request refill rate")
	fs.IntVar(&c.RateLimitBurst, "ratelimit-burst", 30, "per-ip request burst")

	fs.StringVar(&c.EnvFile, "env-file", ".env", "dotenv file loaded before reading the environment (missing is fine)")

	fs.StringVar(&c.ContentSource, "content-source", SourceGraphQL, "graphql|s3")
	fs.StringVar(&c.FetchStrategy, "fetch-strategy", StrategyCombined, "combined (one query) | sections (one query per section)")
	fs.StringVar(&c.CMSSpaceID, "cms-space-id", "", "CMS space id")
	fs.StringVar(&c.CMSEnvironment, "cms-environment", "master", "CMS environment")
	fs.StringVar(&c.CMSEndpoint, "cms-endpoint", "", "override the GraphQL endpoint url")
	fs.StringVar(&c.CMSAccessToken, "cms-access-token", "", "CMS delivery token")
	fs.StringVar(&c.CMSAccessTokenSSM, "cms-access-token-ssm-param", "", "SSM SecureString parameter holding the CMS token")
	fs.StringVar(&c.CMSAccessTokenKMSBlob, "cms-access-token-kms-ciphertext", "", "base64 KMS ciphertext of the CMS token")
	fs.StringVar(&c.ContentS3Bucket, "content-s3-bucket", "", "bucket holding the section mirror")
	fs.StringVar(&c.ContentS3Prefix, "content-s3-prefix", "content/sections", "key prefix of the section mirror")

	fs.DurationVar(&c.AssetTimeout, "asset-timeout", 5*time.Second, "upstream timeout for relayed images")
	fs.DurationVar(&c.ResumeTimeout, "resume-timeout", 10*time.Second, "upstream timeout for the resume")
	fs.StringVar(&c.ResumeFilename, "resume-filename", "Alberto_Moreno-Resume.pdf", "filename in the resume Content-Disposition")

	fs.StringVar(&c.SiteURL, "site-url", "https://alberthiggs.com", "canonical site url for the sitemap")
	fs.StringVar(&c.SiteName, "site-name", "Alberto Moreno", "site owner name shown before content loads")
	fs.StringVar(&c.SiteDescription, "site-description", "Portfolio of Alberto Moreno, software engineer.", "default meta description")
	fs.StringVar(&c.GAMeasurementID, "ga-measurement-id", "", "Google Analytics measurement id (empty disables analytics)")
}

// LoadDotEnv loads path into the process environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("load %s: %w", path, err)
	}
	return true, nil
}

// EnvKey returns the variable consulted for flag name.
func EnvKey(prefix, name string) string {
	return prefix + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
}

// FillFromEnv sets every flag not given on the command line from the
// environment. Invalid values are reported through logf and ignored.
func FillFromEnv(fs *flag.FlagSet, prefix string, logf func(string, ...any)) {
	explicit := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	fs.VisitAll(func(f *flag.Flag) {
		key := EnvKey(prefix, f.Name)
		val, ok := os.LookupEnv(key)
		if !ok {
			return
		}
		if explicit[f.Name] {
			if logf != nil && !isSecret(f.Name) {
				logf("flag -%s: cli value %q overrides env %s", f.Name, f.Value.String(), key)
			}
			return
		}
		prev := f.Value.String()
		if err := fs.Set(f.Name, val); err != nil {
			_ = fs.Set(f.Name, prev)
			if logf != nil {
				logf("flag -%s: ignoring invalid env %s: %v", f.Name, key, err)
			}
		}
	})
}

func isSecret(name string) bool {
	return strings.Contains(name, "token")
}

// Validate reports every invalid field at once.
func Validate(c App) error {
	var errs []error
	add := func(format string, args ...any) { errs = append(errs, fmt.Errorf(format, args...)) }

	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		add("invalid HTTP_PORT %d (must be 1..65535)", c.HTTPPort)
	}
	if c.AdminPort < 1 || c.AdminPort > 65535 {
		add("invalid ADMIN_PORT %d (must be 1..65535)", c.AdminPort)
	}
	if c.AdminPort == c.HTTPPort {
		add("ADMIN_PORT and HTTP_PORT must differ (both %d)", c.HTTPPort)
	}
	if c.TrustedHops < 0 || c.TrustedHops > 5 {
		add("invalid TRUSTED_HOPS %d (must be 0..5)", c.TrustedHops)
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("invalid LOG_LEVEL: %w", err))
	}
	if c.StacktraceLevel != "" {
		if _, err := log.ParseLevel(c.StacktraceLevel); err != nil {
			errs = append(errs, fmt.Errorf("invalid STACKTRACE_LEVEL: %w", err))
		}
	}
	if c.IncludeErrorLinks && (c.MaxErrorLinks < 1 || c.MaxErrorLinks > 64) {
		add("MAX_ERROR_LINKS must be 1..64 (got %d)", c.MaxErrorLinks)
	}

	if c.TraceSample < 0 || c.TraceSample > 1 {
		add("invalid TRACE_SAMPLE %.3f (must be 0..1)", c.TraceSample)
	}
	if c.EnableTracing {
		if c.OTLPEndpoint == "" {
			add("OTLP_ENDPOINT required when ENABLE_TRACING=true")
		} else if err := checkHostPort(c.OTLPEndpoint); err != nil {
			add("OTLP_ENDPOINT must be host:port (got %q): %v", c.OTLPEndpoint, err)
		}
	}
	if c.EnablePyroscope {
		if c.PyroServer == "" {
			add("PYRO_SERVER required when ENABLE_PYROSCOPE=true")
		} else if u, err := url.Parse(c.PyroServer); err != nil || u.Scheme == "" || u.Host == "" {
			add("PYRO_SERVER must be a URL (got %q)", c.PyroServer)
		}
		if c.PyroTenantID == "" {
			add("PYRO_TENANT required when ENABLE_PYROSCOPE=true")
		}
	}

	if c.RateLimitRPS <= 0 {
		add("RATELIMIT_RPS must be positive (got %v)", c.RateLimitRPS)
	}
	if c.RateLimitBurst < 1 {
		add("RATELIMIT_BURST must be at least 1 (got %d)", c.RateLimitBurst)
	}

	switch c.ContentSource {
	case SourceGraphQL:
		if c.CMSSpaceID == "" && c.CMSEndpoint == "" {
			add("CMS_SPACE_ID or CMS_ENDPOINT required for content-source=graphql")
		}
		if c.CMSAccessToken == "" && c.CMSAccessTokenSSM == "" && c.CMSAccessTokenKMSBlob == "" {
			add("one of CMS_ACCESS_TOKEN, CMS_ACCESS_TOKEN_SSM_PARAM or CMS_ACCESS_TOKEN_KMS_CIPHERTEXT is required")
		}
		if c.CMSEndpoint != "" {
			if u, err := url.Parse(c.CMSEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
				add("CMS_ENDPOINT must be a URL (got %q)", c.CMSEndpoint)
			}
		}
	case SourceS3:
		if c.ContentS3Bucket == "" {
			add("CONTENT_S3_BUCKET required for content-source=s3")
		}
	default:
		add("invalid CONTENT_SOURCE %q (graphql|s3)", c.ContentSource)
	}
	if c.FetchStrategy != StrategyCombined && c.FetchStrategy != StrategySections {
		add("invalid FETCH_STRATEGY %q (combined|sections)", c.FetchStrategy)
	}

	if c.AssetTimeout <= 0 || c.AssetTimeout > MaxUpstreamTimeout {
		add("ASSET_TIMEOUT must be in (0, %s] (got %s)", MaxUpstreamTimeout, c.AssetTimeout)
	}
	if c.ResumeTimeout <= 0 || c.ResumeTimeout > MaxUpstreamTimeout {
		add("RESUME_TIMEOUT must be in (0, %s] (got %s)", MaxUpstreamTimeout, c.ResumeTimeout)
	}
	if c.ResumeFilename == "" || strings.ContainsAny(c.ResumeFilename, "\"\\\r\n/") {
		add("RESUME_FILENAME must be a plain file name (got %q)", c.ResumeFilename)
	}

	if u, err := url.Parse(c.SiteURL); err != nil || u.Scheme != "https" || u.Host == "" {
		add("SITE_URL must be an https URL (got %q)", c.SiteURL)
	}

	return errors.Join(errs...)
}

// checkHostPort accepts host:port with a non-empty host and a port in
// 1..65535. URLs are rejected; SplitHostPort alone reads "http://x" as
// host "http" and port "//x".
func checkHostPort(s string) error {
	if strings.Contains(s, "://") {
		return errors.New("scheme not allowed")
	}
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return err
	}
	if host == "" {
		return errors.New("empty host")
	}
	n, err := strconv.Atoi(port)
	if err != nil || n < 1 || n > 65535 {
		return fmt.Errorf("invalid port %q", port)
	}
	return nil
}
