package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "modernc.org/sqlite"

	"chromasky/internal/api"
	"chromasky/internal/ingest"
	"chromasky/internal/models"
	"chromasky/internal/render"
	"chromasky/internal/store"
)

func main() {
	dbPath := flag.String("db", "data/chromasky.db", "path to SQLite database")
	dataDir := flag.String("data", "data/grib", "directory for downloaded forecast files and snapshots")
	mapDir := flag.String("maps", "data/maps", "directory for rendered maps and field JSON")
	port := flag.String("port", "8080", "HTTP server port")
	tz := flag.String("tz", "Asia/Shanghai", "local timezone for event windows")
	noPoll := flag.Bool("no-poll", false, "disable download/compute loops (server only, for local dev)")
	once := flag.Bool("once", false, "download the latest cycle and exit")
	backfill := flag.String("backfill", "", "fetch an archived cycle for a past date (YYYYMMDD) and exit")
	renderEvent := flag.String("render", "", "compute and render one event, then exit (e.g. today_sunset)")
	noAOD := flag.Bool("no-aod", false, "score without the air quality factor input")
	flag.Parse()

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	loc, err := time.LoadLocation(*tz)
	if err != nil {
		log.Printf("Warning: could not load timezone %s, using UTC: %v", *tz, err)
		loc = time.UTC
	}

	st := store.New(db)
	if err := st.Migrate(); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	log.Println("database migrated")

	gfs := ingest.NewGFSClient(ingest.DefaultRegion)
	cams := ingest.NewCAMSClient(os.Getenv("ADS_API_KEY"))
	source := ingest.NewFileSource(*dataDir)
	cache := render.NewCache(*mapDir)
	windows := ingest.DefaultWindows(loc)

	scheduler := ingest.NewScheduler(st, gfs, cams, source, cache, windows, *dataDir)
	scheduler.SetUseAOD(!*noAOD)

	if *once {
		log.Println("downloading latest cycle")
		if err := scheduler.DownloadOnce(); err != nil {
			log.Fatalf("download: %v", err)
		}
		log.Println("done")
		return
	}

	if *backfill != "" {
		log.Printf("backfilling archived cycle for %s", *backfill)
		if err := scheduler.Backfill(*backfill); err != nil {
			log.Fatalf("backfill: %v", err)
		}
		log.Println("done")
		return
	}

	if *renderEvent != "" {
		event, err := models.ParseEvent(*renderEvent)
		if err != nil {
			log.Fatalf("render: %v", err)
		}
		if err := scheduler.ComputeEvent(event, time.Now()); err != nil {
			log.Fatalf("render %s: %v", event, err)
		}
		log.Println("done")
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !*noPoll {
		go scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	server := api.NewServer(st, source, cache, windows, *port)
	log.Printf("starting server on :%s", *port)
	if err := server.Run(ctx); err != nil {
		log.Fatalf("server: %v", err)
	}
}
