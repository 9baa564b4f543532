// Command execctld is the cluster control-plane daemon: it opens the
// execution store, wires the admission/moderation/allocation pipeline, and
// serves the transport package's REST surface until told to stop.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gorilla/websocket"

	"oss.nandlabs.io/execctl/admission"
	"oss.nandlabs.io/execctl/allocator"
	"oss.nandlabs.io/execctl/bootstrap"
	"oss.nandlabs.io/execctl/chrono"
	"oss.nandlabs.io/execctl/cli"
	"oss.nandlabs.io/execctl/cluster"
	"oss.nandlabs.io/execctl/config"
	"oss.nandlabs.io/execctl/events"
	"oss.nandlabs.io/execctl/execution"
	"oss.nandlabs.io/execctl/l3"
	"oss.nandlabs.io/execctl/messaging"
	"oss.nandlabs.io/execctl/metrics"
	"oss.nandlabs.io/execctl/moderator"
	httpserver "oss.nandlabs.io/execctl/rest/server"
	"oss.nandlabs.io/execctl/secrets"
	"oss.nandlabs.io/execctl/store"
	"oss.nandlabs.io/execctl/transport"
)

var logger = l3.Get()

const daemonVersion = "0.1.0"

func main() {
	app := cli.NewCLI()
	app.AddVersion(daemonVersion)
	app.AddCommand(cli.NewCommand("serve", "Run the execution controller daemon", daemonVersion, runServe))

	if err := app.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "execctld: %v\n", err)
		os.Exit(1)
	}
}

func runServe(_ *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	st, err := store.Open(cfg.StoreDSN, "execctl")
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	dialHeader, err := coordinatorAuthHeader(cfg)
	if err != nil {
		return fmt.Errorf("load coordinator credential: %w", err)
	}
	coordConn, _, err := websocket.DefaultDialer.Dial(cfg.CoordinatorURL, dialHeader)
	if err != nil {
		return fmt.Errorf("dial coordinator: %w", err)
	}
	clusterService := cluster.NewWSService(coordConn)

	queues := admission.NewQueues()
	gate := moderator.New(clusterService, cfg.StateStoreConnectionName)

	bus, err := events.NewBus(&messaging.LocalProvider{})
	if err != nil {
		return fmt.Errorf("start event bus: %w", err)
	}

	lc := execution.New(st, queues, gate, clusterService, bus, nil)
	lc.RegisterHandlers(bus)

	allocScheduler := chrono.New()
	alloc := allocator.New(queues, clusterService, lc, allocScheduler)
	alloc.SetMinAvailableWorkers(cfg.MinAvailableWorkers)

	bootstrapController := bootstrap.New(st, clusterService, lc, alloc)

	sampler := metrics.NewSampler(queues.Pending, queues.ModeratorHeld, chrono.New())
	if err := sampler.Start(); err != nil {
		return fmt.Errorf("start metrics sampler: %w", err)
	}
	defer sampler.Stop()

	watcher := config.NewWatcher(cfg.ConfigFile, gate, alloc)
	if err := watcher.Start(); err != nil {
		return fmt.Errorf("start config watcher: %w", err)
	}
	defer watcher.Stop()

	srv, err := newHTTPServer(cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("build http server: %w", err)
	}
	if err := srv.Get("/metrics", metricsHandler); err != nil {
		return fmt.Errorf("mount metrics: %w", err)
	}

	tp := transport.New(lc, st, bootstrapController)
	if err := tp.RegisterRoutes(srv); err != nil {
		return fmt.Errorf("mount transport routes: %w", err)
	}

	if err := bootstrapController.Bootstrap(context.Background()); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start http server: %w", err)
	}

	logger.InfoF("execctld: listening on %s", cfg.ListenAddr)
	waitForShutdown()

	if err := bootstrapController.Shutdown(context.Background()); err != nil {
		logger.ErrorF("execctld: shutdown: %v", err)
	}
	if err := srv.Stop(); err != nil {
		logger.ErrorF("execctld: http server stop: %v", err)
	}
	return nil
}

func newHTTPServer(listenAddr string) (httpserver.Server, error) {
	host, port, err := splitListenAddr(listenAddr)
	if err != nil {
		return nil, err
	}
	opts := httpserver.DefaultOptions()
	opts.Id = "execctld"
	opts.ListenHost = host
	opts.ListenPort = port
	return httpserver.NewServer(opts)
}

func metricsHandler(c httpserver.Context) {
	metrics.Handler().ServeHTTP(c.HttpResWriter(), c.GetRequest())
}

func waitForShutdown() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}

// coordinatorAuthHeader loads the coordinator's bearer token from a local
// encrypted credential store, if one is configured. Most deployments talk
// to a coordinator that trusts the network path alone, so an empty
// CredentialStoreFile yields no header rather than an error.
func coordinatorAuthHeader(cfg *config.ExecCtlConfig) (http.Header, error) {
	if cfg.CredentialStoreFile == "" {
		return nil, nil
	}
	credStore, err := secrets.NewLocalStore(cfg.CredentialStoreFile, cfg.CredentialStoreKey)
	if err != nil {
		return nil, err
	}
	cred, err := credStore.Get(cfg.CoordinatorCredentialKey, context.Background())
	if err != nil {
		return nil, err
	}
	header := make(http.Header)
	header.Set("Authorization", "Bearer "+cred.Str())
	return header, nil
}

func splitListenAddr(addr string) (host string, port int16, err error) {
	h, p, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, err
	}
	n, err := strconv.Atoi(p)
	if err != nil {
		return "", 0, fmt.Errorf("invalid listen port %q: %w", p, err)
	}
	if h == "" {
		h = "0.0.0.0"
	}
	return h, int16(n), nil
}
