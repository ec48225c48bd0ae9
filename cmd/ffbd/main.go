// command ffbd is the force-feedback engine daemon. It wires a
// serial-attached wheel-base, an optional profile, and the Prometheus
// exporter together around engine.Engine: load config, open the
// device, start the engine, and run until a signal arrives.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"ffbengine.dev/diagnostics"
	"ffbengine.dev/engine"
	"ffbengine.dev/hid"
	"ffbengine.dev/hid/serialdevice"
	"ffbengine.dev/internal/ffblog"
	"ffbengine.dev/metrics"
	"ffbengine.dev/pipeline"
	"ffbengine.dev/profile"
)

// tracer traces the daemon's async-domain lifecycle (device open,
// engine construction, shutdown) — never the RT tick itself, which
// stays allocation- and lock-free. With no SDK/exporter configured,
// otel's default no-op TracerProvider makes every span here free;
// wiring a real exporter is an operator-side concern, not this
// binary's.
var tracer = otel.Tracer("ffbengine.dev/cmd/ffbd")

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "ffbd: %v\n", err)
		os.Exit(2)
	}
}

func run() error {
	ctx, span := tracer.Start(context.Background(), "ffbd.startup")
	defer span.End()

	opts := parseFlags()
	log := ffblog.L

	cfg, err := buildConfig(ctx, opts)
	if err != nil {
		return traceErr(span, fmt.Errorf("build config: %w", err))
	}

	dev, err := serialdevice.Open(serialdevice.Config{
		Port:   opts.port,
		Caps:   opts.caps,
		Logger: log,
	})
	if err != nil {
		return traceErr(span, fmt.Errorf("open device: %w", err))
	}
	defer dev.Halt()

	e, err := engine.New(dev, cfg, nil, log)
	if err != nil {
		return traceErr(span, fmt.Errorf("construct engine: %w", err))
	}

	reg := prometheus.NewRegistry()
	if err := reg.Register(metrics.NewExporter(e)); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	srv := &http.Server{Addr: opts.metricsAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warning().Err(err).Log("ffbd: metrics server stopped")
		}
	}()
	defer srv.Close()

	log.Info().Str(`mode`, e.Mode().String()).Log("ffbd: starting engine")
	e.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Log("ffbd: stopping")
	e.Stop()

	if bb := e.Blackbox(); bb != nil && opts.blackboxPath != "" {
		if err := exportBlackbox(bb, opts.blackboxPath); err != nil {
			log.Warning().Err(err).Log("ffbd: blackbox export failed")
		}
	}
	return nil
}

type options struct {
	port         string
	profilePath  string
	metricsAddr  string
	blackboxPath string
	caps         hid.DeviceCapabilities
}

// parseFlags reads the daemon's options from the environment, keeping
// this a single binary with no required config file.
func parseFlags() options {
	return options{
		port:         envOr("FFBD_PORT", ""),
		profilePath:  envOr("FFBD_PROFILE", ""),
		metricsAddr:  envOr("FFBD_METRICS_ADDR", ":9090"),
		blackboxPath: envOr("FFBD_BLACKBOX", ""),
		caps: hid.DeviceCapabilities{
			MaxTorqueNm:       10,
			EncoderCPR:        4096,
			UpdateRateHz:      1000,
			SupportsRawTorque: true,
		},
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// buildConfig starts from engine.DefaultConfig and layers a profile's
// tuning on top when one is configured, following spec.md §6's
// profile-supplies-tuning contract.
func buildConfig(ctx context.Context, opts options) (engine.Config, error) {
	cfg := engine.DefaultConfig()
	cfg.MaxHighTorqueNm = opts.caps.MaxTorqueNm
	cfg.MaxSafeTorqueNm = opts.caps.MaxTorqueNm / 4

	if opts.profilePath == "" {
		return cfg, nil
	}
	_, span := tracer.Start(ctx, "ffbd.load_profile")
	defer span.End()

	p, err := profile.Load(opts.profilePath, "active")
	if err != nil {
		return engine.Config{}, traceErr(span, fmt.Errorf("load profile: %w", err))
	}
	tuning, err := p.DecodeTuning()
	if err != nil {
		return engine.Config{}, traceErr(span, fmt.Errorf("decode profile tuning: %w", err))
	}
	cfg.MaxSafeTorqueNm = p.MaxSafeTorqueNm
	cfg.MaxHighTorqueNm = p.MaxHighTorqueNm
	cfg.SlewRateNmPerS = p.SlewRateNmPerS
	cfg.Bumpstop = p.Bumpstop
	cfg.HandsOff = p.HandsOff
	if len(tuning.Curve) > 0 {
		curve, err := pipeline.NewResponseCurve(tuning.Curve)
		if err != nil {
			return engine.Config{}, traceErr(span, fmt.Errorf("profile response curve: %w", err))
		}
		cfg.Curve = curve
	}
	cfg.Notches = tuning.Notches
	return cfg, nil
}

// traceErr records err on span (if non-nil) and returns it unchanged,
// so a call site can wrap an error return without breaking its
// control flow.
func traceErr(span oteltrace.Span, err error) error {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func exportBlackbox(bb *diagnostics.Blackbox, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return diagnostics.ExportBlackbox(f, bb.Entries())
}
