package app

import (
	"log"
	"net"
	"net/http"
	"time"

	"github.com/hackercall/backend/internal/eventlog"
	"github.com/hackercall/backend/internal/httpapi"
	"github.com/hackercall/backend/internal/metrics"
	"github.com/hackercall/backend/internal/twilio"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type App struct {
	cfg      Config
	logger   *log.Logger
	twilio   *twilio.Client
	eventLog *eventlog.Logger
	registry *prometheus.Registry
}

func New(cfg Config, logger *log.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// One long-lived client shared by every request; keeps connections to
	// api.twilio.com warm.
	httpClient := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   10,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   5 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	tw, err := twilio.NewClient(twilio.Config{
		AccountSID:   cfg.TwilioAccountSID,
		AuthToken:    cfg.TwilioAuthToken,
		BaseURL:      cfg.TwilioAPIBaseURL,
		APIKeySID:    cfg.TwilioAPIKeySID,
		APIKeySecret: cfg.TwilioAPIKeySecret,
		TwiMLAppSID:  cfg.TwilioTwiMLAppSID,
		TokenTTL:     cfg.TokenTTL,
		HTTPClient:   httpClient,
	})
	if err != nil {
		return nil, err
	}
	if !cfg.TokensEnabled() {
		logger.Println("token: API key or TwiML app not configured, /token will fail")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.MustRegister(reg)

	return &App{
		cfg:      cfg,
		logger:   logger,
		twilio:   tw,
		eventLog: eventlog.New(logger),
		registry: reg,
	}, nil
}

func (a *App) Router() http.Handler {
	routerCfg := httpapi.RouterConfig{
		PublicBaseURL:  a.cfg.PublicBaseURL,
		FromNumber:     a.cfg.TwilioFromNumber,
		MetricsHandler: promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
	}
	return httpapi.NewRouter(routerCfg, a.logger, a.twilio, a.eventLog)
}

func (a *App) Close() error {
	a.twilio.CloseIdleConnections()
	return nil
}
