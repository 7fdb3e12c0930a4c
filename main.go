package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"simulation_builder/audit"
	"simulation_builder/config"
	"simulation_builder/generator"
	"simulation_builder/logger"
	"simulation_builder/publisher"
	"simulation_builder/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to config.json (optional)")
	serve := flag.Bool("serve", false, "start web server")
	addr := flag.String("addr", "", "http listen address when --serve (overrides config.server_addr)")
	verbose := flag.Bool("v", false, "enable debug logs")
	mock := flag.Bool("mock", false, "use the offline mock model instead of real providers")

	name := flag.String("name", "", "simulation name (CLI mode)")
	subject := flag.String("subject", "", "subject")
	department := flag.String("department", "", "department")
	course := flag.String("course", "", "course")
	description := flag.String("description", "", "what the simulation should show")
	complexity := flag.String("complexity", "medium", "complexity tier: low, medium, high")
	interactivity := flag.String("interactivity", "medium", "interactivity tier: low, medium, high")
	provider := flag.String("provider", "", "preferred provider: openai or deepseek (defaults to config)")
	flag.Parse()

	if *mock {
		_ = os.Setenv("USE_MOCK_LLM", "true")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogMode, *verbose)
	if err != nil {
		return err
	}
	defer log.Sync()

	recorder, closeAudit, err := buildAudit(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeAudit(); err != nil {
			log.Warn("failed to close audit log", "error", err)
		}
	}()

	backends, err := buildBackends(cfg)
	if err != nil {
		return err
	}
	gw, err := generator.NewGateway(backends, log)
	if err != nil {
		return err
	}
	agent, err := generator.NewAgent(gw, recorder, log, generator.WithCallTimeout(cfg.RequestTimeout()))
	if err != nil {
		return err
	}
	pub, err := publisher.New(cfg.OutputDir, log)
	if err != nil {
		return err
	}

	defaultBackend, err := generator.ParseBackend(cfg.DefaultProvider)
	if err != nil {
		return err
	}

	// Web server mode
	if *serve {
		srv, err := server.New(agent, pub, server.Options{
			DefaultBackend:   defaultBackend,
			SessionCacheSize: cfg.SessionCacheSize,
		}, log)
		if err != nil {
			return err
		}
		listen := cfg.ServerAddr
		if *addr != "" {
			listen = *addr
		}
		return listenAndServe(listen, srv.Routes(), log)
	}

	if *name == "" || *subject == "" {
		return errors.New("--name and --subject are required (or use --serve)")
	}
	preferred := defaultBackend
	if *provider != "" {
		if preferred, err = generator.ParseBackend(*provider); err != nil {
			return err
		}
	}
	cTier, err := generator.ParseTier(*complexity)
	if err != nil {
		return err
	}
	iTier, err := generator.ParseTier(*interactivity)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	caller := generator.Caller{UserID: "cli", Preferred: preferred}
	req := generator.SimulationRequest{
		Name:          *name,
		Subject:       *subject,
		Department:    *department,
		Course:        *course,
		Description:   *description,
		Complexity:    cTier,
		Interactivity: iTier,
	}
	log.Info("generating simulation", "name", req.Name, "provider", preferred)
	prompt, err := agent.SynthesizePrompt(ctx, caller, req)
	if err != nil {
		return err
	}
	code, err := agent.GenerateCode(ctx, caller, prompt)
	if err != nil {
		return err
	}
	bundle, err := pub.Publish(ctx, publisher.PublishParams{
		Title: req.Name,
		Code:  code,
		Transcript: []generator.Message{
			{Role: generator.RoleUser, Content: prompt},
		},
		Digest: req.Description,
	})
	if err != nil {
		return err
	}
	log.Info("simulation written", "dir", bundle.Dir)
	fmt.Println(bundle.IndexPath)
	return nil
}

// buildBackends registers a client for every backend that has credentials.
// A backend left out is reported as unavailable when selected.
func buildBackends(cfg config.Config) (map[generator.Backend]generator.LLMClient, error) {
	backends := make(map[generator.Backend]generator.LLMClient)
	if cfg.UseMockLLM {
		backends[generator.BackendOpenAI] = generator.MockLLM{}
		backends[generator.BackendDeepSeek] = generator.MockLLM{}
		return backends, nil
	}
	if cfg.OpenAI.APIKey != "" {
		c, err := generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: string(generator.BackendOpenAI),
			Model:    cfg.OpenAI.Model,
			APIKey:   cfg.OpenAI.APIKey,
			BaseURL:  cfg.OpenAI.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		backends[generator.BackendOpenAI] = c
	}
	if cfg.DeepSeek.APIKey != "" {
		// DeepSeek serves an OpenAI-compatible API; base_url is mandatory.
		if cfg.DeepSeek.BaseURL == "" {
			return nil, fmt.Errorf("llm provider deepseek requires base_url (OpenAI-compatible endpoint)")
		}
		c, err := generator.NewOpenAILLMFromConfig(&generator.LLMSettings{
			Provider: string(generator.BackendDeepSeek),
			Model:    cfg.DeepSeek.Model,
			APIKey:   cfg.DeepSeek.APIKey,
			BaseURL:  cfg.DeepSeek.BaseURL,
		})
		if err != nil {
			return nil, err
		}
		backends[generator.BackendDeepSeek] = c
	}
	return backends, nil
}

func buildAudit(cfg config.Config, log *logger.Logger) (audit.Recorder, func() error, error) {
	if !cfg.Audit.Enabled {
		return audit.Nop{}, func() error { return nil }, nil
	}
	var sinks []audit.Sink
	if cfg.Audit.Dir != "" {
		s, err := audit.NewNDJSONSink(cfg.Audit.Dir, cfg.Audit.GlobalPath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, s)
	}
	if cfg.Audit.DBPath != "" {
		s, err := audit.NewSQLiteSink(cfg.Audit.DBPath)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, s)
	}
	l, err := audit.NewLogger(cfg.Audit.QueueSize, log, sinks...)
	if err != nil {
		return nil, nil, err
	}
	return l, l.Close, nil
}

func listenAndServe(listen string, h http.Handler, log *logger.Logger) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting web server", "addr", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down web server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
