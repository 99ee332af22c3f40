package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Flavius4914/RTS-Engine/internal/persistence/indexdb"
	persistlog "github.com/Flavius4914/RTS-Engine/internal/persistence/log"
	"github.com/Flavius4914/RTS-Engine/internal/persistence/snapshot"
	"github.com/Flavius4914/RTS-Engine/internal/sim/catalogs"
	"github.com/Flavius4914/RTS-Engine/internal/sim/grid"
	"github.com/Flavius4914/RTS-Engine/internal/sim/tuning"
	"github.com/Flavius4914/RTS-Engine/internal/sim/world"
	"github.com/Flavius4914/RTS-Engine/internal/transport/command"
	"github.com/Flavius4914/RTS-Engine/internal/transport/observer"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		sessionID  = flag.String("session", "session_1", "session id (names the data subdirectory)")
		seed       = flag.Int64("seed", 1337, "simulation seed (used only when starting fresh)")
		configDir  = flag.String("configs", "./configs", "config directory")
		mapPath    = flag.String("map", "./configs/maps/skirmish.json", "map file")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read-model index")

		snapPath   = flag.String("snapshot", "", "path to snapshot to load (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume from the latest snapshot in the session dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("load catalogs: %v", err)
	}

	gmap, mapFile, err := grid.LoadMapFile(*mapPath, cats.Terrain)
	if err != nil {
		logger.Fatalf("load map: %v", err)
	}

	sessionDir := filepath.Join(*dataDir, "sessions", *sessionID)
	_ = os.MkdirAll(sessionDir, 0o755)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}

	snapshotToLoad := strings.TrimSpace(*snapPath)
	if snapshotToLoad == "" && *loadLatest {
		if latest, err := snapshot.Latest(filepath.Join(sessionDir, "snapshots")); err == nil {
			snapshotToLoad = latest
		}
	}

	// Tuning is required for a fresh session; a resume carries its effective
	// tuning inside the snapshot, so a missing file only downgrades to
	// defaults there.
	tune, tuneErr := tuning.Load(tp)
	if tuneErr != nil {
		if snapshotToLoad == "" || !os.IsNotExist(tuneErr) {
			logger.Fatalf("load tuning: %v", tuneErr)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Default()
	}

	// Read-model index (does not affect sim determinism).
	var idx *indexdb.SQLiteIndex
	if !*disableDB {
		idx, err = indexdb.OpenSQLite(filepath.Join(sessionDir, "index.db"))
		if err != nil {
			logger.Fatalf("open index backend: %v", err)
		}
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index backend: upsert catalogs: %v", err)
		}
	}

	var w *world.World
	if snapshotToLoad != "" {
		snap, err := snapshot.ReadSnapshot(snapshotToLoad)
		if err != nil {
			logger.Fatalf("read snapshot: %v", err)
		}
		w, err = world.Import(snap, cats, gmap, logger)
		if err != nil {
			logger.Fatalf("import snapshot: %v", err)
		}
		logger.Printf("resumed from snapshot=%s tick=%d", filepath.Base(snapshotToLoad), w.CurrentTick())
	} else {
		w, err = world.New(world.ConfigFrom(tune, *seed), cats, gmap, mapFile, logger)
		if err != nil {
			logger.Fatalf("world: %v", err)
		}
	}

	ctx, cancel := signalContext()
	defer cancel()

	tickLog := persistlog.NewTickLogger(sessionDir)
	defer tickLog.Close()
	w.SetTickLogger(multiTickLogger{a: tickLog, b: idx})

	snapDir := filepath.Join(sessionDir, "snapshots")
	w.SetSnapshotFunc(func(snap snapshot.SnapshotV1) error {
		path := snapshot.Path(snapDir, snap.Header.Tick)
		if err := snapshot.WriteSnapshot(path, snap); err != nil {
			logger.Printf("snapshot write: %v", err)
			return err
		}
		if idx != nil {
			idx.RecordSnapshot(path, snap)
		}
		return nil
	})

	go func() {
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("simulation stopped: %v", err)
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")

		m := w.Metrics()
		tick := w.CurrentTick()
		if m.Tick != 0 {
			tick = m.Tick
		}

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP rts_session_tick Current simulation tick.\n")
		fmt.Fprintf(rw, "# TYPE rts_session_tick gauge\n")
		fmt.Fprintf(rw, "rts_session_tick{session=%q} %d\n", *sessionID, tick)

		fmt.Fprintf(rw, "# HELP rts_session_units Living unit count.\n")
		fmt.Fprintf(rw, "# TYPE rts_session_units gauge\n")
		fmt.Fprintf(rw, "rts_session_units{session=%q} %d\n", *sessionID, m.Units)

		fmt.Fprintf(rw, "# HELP rts_session_buildings Living building count.\n")
		fmt.Fprintf(rw, "# TYPE rts_session_buildings gauge\n")
		fmt.Fprintf(rw, "rts_session_buildings{session=%q} %d\n", *sessionID, m.Buildings)

		fmt.Fprintf(rw, "# HELP rts_session_kingdoms Undefeated kingdom count.\n")
		fmt.Fprintf(rw, "# TYPE rts_session_kingdoms gauge\n")
		fmt.Fprintf(rw, "rts_session_kingdoms{session=%q} %d\n", *sessionID, m.Kingdoms)

		fmt.Fprintf(rw, "# HELP rts_session_queue_depth Commands waiting for admission.\n")
		fmt.Fprintf(rw, "# TYPE rts_session_queue_depth gauge\n")
		fmt.Fprintf(rw, "rts_session_queue_depth{session=%q} %d\n", *sessionID, m.QueueDepth)

		fmt.Fprintf(rw, "# HELP rts_session_observers Connected observer count.\n")
		fmt.Fprintf(rw, "# TYPE rts_session_observers gauge\n")
		fmt.Fprintf(rw, "rts_session_observers{session=%q} %d\n", *sessionID, m.Observers)

		fmt.Fprintf(rw, "# HELP rts_session_step_ms Last tick step duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE rts_session_step_ms gauge\n")
		fmt.Fprintf(rw, "rts_session_step_ms{session=%q} %.3f\n", *sessionID, m.StepMS)

		fmt.Fprintf(rw, "# HELP rts_session_environment Environment cycle state (always 1; read the labels).\n")
		fmt.Fprintf(rw, "# TYPE rts_session_environment gauge\n")
		fmt.Fprintf(rw, "rts_session_environment{session=%q,phase=%q,weather=%q} 1\n", *sessionID, m.Phase, m.Weather)
	})

	enableAdminHTTP := envBool("RTS_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP())
	enablePprofHTTP := envBool("RTS_ENABLE_PPROF_HTTP", false)
	if enableAdminHTTP {
		// Local-only admin endpoints (do not affect simulation determinism).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !isLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := struct {
				SessionID string             `json:"session_id"`
				MapID     string             `json:"map_id"`
				Tick      uint64             `json:"tick"`
				Metrics   world.WorldMetrics `json:"metrics"`
			}{
				SessionID: *sessionID,
				MapID:     gmap.ID,
				Tick:      w.CurrentTick(),
				Metrics:   w.Metrics(),
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})

		obsSrv := observer.NewServer(w, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (RTS_ENABLE_ADMIN_HTTP=false)")
	}
	if enablePprofHTTP {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	mux.HandleFunc("/v1/ws", command.NewServer(w, logger).Handler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

// multiTickLogger fans the replay log out to the jsonl writer and the index.
// Either side may be nil.
type multiTickLogger struct {
	a world.TickLogger
	b *indexdb.SQLiteIndex
}

func (m multiTickLogger) LogTick(entry world.TickLogEntry) error {
	if m.a != nil {
		_ = m.a.LogTick(entry)
	}
	if m.b != nil {
		_ = m.b.LogTick(entry)
	}
	return nil
}
