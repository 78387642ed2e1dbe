// Command admitsim drives the admission scheduler against an in-process
// backend that answers 429 once its own request budget is spent.
//
// Usage:
//
//	go run ./cmd/admitsim -config admission.toml -requests 40 -backend-rps 4
//
// With -metrics-addr set, scheduler metrics are served on /metrics until
// the process receives SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	lg "github.com/Andrej220/go-utils/zlog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	adm "github.com/Andrej220/go-utils/admission"
	"github.com/Andrej220/go-utils/admission/config"
	"github.com/Andrej220/go-utils/admission/promadmission"
)

var resources = []string{"tents", "categories", "admins", "bookings", "refunds", "revenue"}

func main() {
	var (
		cfgPath     = flag.String("config", "", "path to a TOML config file")
		requests    = flag.Int("requests", 30, "number of requests to admit")
		backendRPS  = flag.Float64("backend-rps", 5, "requests per second the fake backend accepts")
		backendFail = flag.Float64("backend-fail", 0.05, "fraction of requests failing with 500")
		metricsAddr = flag.String("metrics-addr", "", "listen address for /metrics, empty to disable")
	)
	flag.Parse()

	ctx := context.Background()
	logger := lg.FromContext(ctx)

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Error("Config error", lg.Any("error", err))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	opts := cfg.Options()
	opts.Metrics = promadmission.NewMetrics(reg, "admission")
	sched := adm.New(opts)
	reg.MustRegister(promadmission.NewCollector("admission", sched))

	backend := newBackend(*backendRPS, *backendFail)
	defer backend.Close()

	if *metricsAddr != "" {
		srv := &http.Server{Addr: *metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("Metrics server failed", lg.Any("error", err))
			}
		}()
		defer srv.Close()
	}

	eff := sched.Options()
	logger.Info("Simulation starting",
		lg.Int("requests", *requests),
		lg.Int("max_concurrent", eff.MaxConcurrent),
		lg.Int("max_retries", eff.Retry.MaxRetries),
		lg.String("pacing", eff.PacingDelay.String()),
		lg.String("requeue", eff.Requeue.String()),
		lg.String("settlement", eff.Settlement.String()),
	)

	client := backend.Client()
	start := time.Now()

	var ok, failed atomic.Int32
	var wg sync.WaitGroup
	for i := range *requests {
		res := resources[i%len(resources)]
		prio := rand.IntN(5)
		id := fmt.Sprintf("%s#%d", res, i)

		f := adm.Admit(ctx, sched, id, func(ctx context.Context) (int, error) {
			return fetch(ctx, client, backend.URL+"/"+res)
		}, prio)

		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Wait(ctx); err != nil {
				failed.Add(1)
				return
			}
			ok.Add(1)
		}()
	}
	wg.Wait()

	logger.Info("Simulation finished",
		lg.Int("succeeded", int(ok.Load())),
		lg.Int("failed", int(failed.Load())),
		lg.String("elapsed", time.Since(start).String()),
		lg.String("status", sched.Status().String()),
	)

	if *metricsAddr != "" {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		logger.Info("Serving metrics", lg.String("addr", *metricsAddr))
		<-sig
	}
}

// newBackend starts a fake API limited to rps requests per second.
func newBackend(rps, failRate float64) *httptest.Server {
	lim := rate.NewLimiter(rate.Limit(rps), 1)
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !lim.Allow() {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		if rand.Float64() < failRate {
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func fetch(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, &adm.StatusError{Code: resp.StatusCode, Err: fmt.Errorf("GET %s", url)}
	}
	return resp.StatusCode, nil
}
