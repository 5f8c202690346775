package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/apex/log"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/spf13/cobra"

	_ "github.com/grtshw/lead-dispatch/migrations"
	"github.com/grtshw/lead-dispatch/photos"
	"github.com/grtshw/lead-dispatch/sheets"
	"github.com/grtshw/lead-dispatch/utils"
)

func main() {
	utils.LoadDotEnv()
	utils.InitLogger()

	cfg := utils.LoadConfig()
	app := pocketbase.New()
	fetchLog := utils.NewFetchLog(app)
	d := newDashboard(app, cfg, fetchLog)

	// Register migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: false,
	})

	// Register leaderboard command for checking the sheet export from a shell
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "leaderboard",
		Short: "Fetch the leaderboard sheet and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := d.fetcher.Table(cmd.Context(), cfg.LeaderboardCSVURL)
			if err != nil {
				return fmt.Errorf("fetch leaderboard: %w", err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(map[string]any{"data": records})
		},
	})

	// Register photo-lookup command
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "photo-lookup [name]",
		Short: "Look up a rep photo URL by name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !d.photos.Enabled() {
				return fmt.Errorf("PHOTO_CSV_URL environment variable not set")
			}
			url, ok, err := d.photos.Lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no photo found for %q", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), url)
			return nil
		},
	})

	// Register backup-now command to run the nightly backup immediately
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "backup-now",
		Short: "Back up the database to S3 and prune old fetch logs",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			if err := runMaintenance(app); err != nil {
				log.Fatalf("Backup failed: %v", err)
			}
			fmt.Println("Backup complete")
		},
	})

	// OnServe hook - runs when the server starts
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		e.Router.BindFunc(securityHeadersMiddleware)

		registerRoutes(e, d)

		serveFrontend(e)

		// Nightly backup and fetch log pruning (3 AM AEST)
		go scheduleMaintenance(app)

		// Load the photo directory so the first dashboard render is fast
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := d.photos.Warm(ctx); err != nil {
				log.WithError(err).Warn("[Photos] Warm-up failed, will retry on first lookup")
			}
		}()

		return e.Next()
	})

	registerAuditHooks(app)

	if err := app.Start(); err != nil {
		log.WithError(err).Fatal("Server stopped")
	}
}

// newDashboard wires the sheet fetcher, photo cache and fetch log from cfg.
func newDashboard(app core.App, cfg utils.Config, fetchLog utils.FetchLogger) *dashboard {
	fetcher := sheets.NewFetcher(cfg.FetchTimeout)

	opts := []photos.Option{
		photos.WithTTL(cfg.PhotoCacheTTL),
		photos.WithRefreshHook(photoRefreshRecorder(fetchLog)),
	}
	if cfg.PhotoNaiveSplit {
		opts = append(opts, photos.WithNaiveParsing())
	}

	cache := photos.New(photos.HTTPSource(fetcher, cfg.PhotoCSVURL), opts...)

	return &dashboard{
		app:            app,
		fetcher:        fetcher,
		leaderboardURL: cfg.LeaderboardCSVURL,
		photos:         cache,
		fetchLog:       fetchLog,
	}
}

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware(e *core.RequestEvent) error {
	h := e.Response.Header()

	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

	// Photos are hosted off-site, so images may come from any https origin
	h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self' https:; frame-ancestors 'none'")
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
	h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

	return e.Next()
}

// registerRoutes sets up the dashboard API endpoints
func registerRoutes(e *core.ServeEvent, d *dashboard) {
	e.Router.GET("/api/leaderboard-data", d.handleLeaderboardData).
		BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAuth)

	e.Router.GET("/api/photos", d.handlePhotoLookup).
		BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAuth)

	e.Router.POST("/api/photos/lookup", d.handlePhotoBatchLookup).
		BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAuth)

	e.Router.GET("/api/dashboard/sources", d.handleSourceStatus).
		BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAuth)

	e.Router.GET("/api/admin/photos/stats", d.handlePhotoStats).
		BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	log.Info("[Routes] Registered API endpoints")
}

// serveFrontend serves the SPA frontend
func serveFrontend(e *core.ServeEvent) {
	staticDir := "./pb_public"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		staticDir = "../frontend/dist"
	}

	e.Router.GET("/{path...}", func(re *core.RequestEvent) error {
		path := re.Request.PathValue("path")

		// Don't handle API routes - let them 404 if not matched
		if len(path) >= 4 && path[:4] == "api/" {
			return re.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
		}

		if path == "" || path == "/" {
			return re.FileFS(os.DirFS(staticDir), "index.html")
		}

		if info, err := os.Stat(staticDir + "/" + path); err == nil && !info.IsDir() {
			return re.FileFS(os.DirFS(staticDir), path)
		}

		// SPA fallback for client-side routing
		return re.FileFS(os.DirFS(staticDir), "index.html")
	})
}

// registerAuditHooks records user changes and logins in audit_logs
func registerAuditHooks(app *pocketbase.PocketBase) {
	app.OnRecordAfterCreateSuccess(utils.CollectionUsers).BindFunc(func(e *core.RecordEvent) error {
		utils.LogRecordChange(app, utils.AuditCreate, utils.CollectionUsers, e.Record.Id, nil)
		return e.Next()
	})

	app.OnRecordAfterUpdateSuccess(utils.CollectionUsers).BindFunc(func(e *core.RecordEvent) error {
		utils.LogRecordChange(app, utils.AuditUpdate, utils.CollectionUsers, e.Record.Id, map[string]any{
			utils.FieldRole: e.Record.GetString(utils.FieldRole),
			utils.FieldTeam: e.Record.GetString(utils.FieldTeam),
		})
		return e.Next()
	})

	app.OnRecordAfterDeleteSuccess(utils.CollectionUsers).BindFunc(func(e *core.RecordEvent) error {
		utils.LogRecordChange(app, utils.AuditDelete, utils.CollectionUsers, e.Record.Id, nil)
		return e.Next()
	})

	app.OnRecordAuthRequest(utils.CollectionUsers).BindFunc(func(e *core.RecordAuthRequestEvent) error {
		utils.LogAuthEvent(app, e.Record.Id, e.Record.Email(), utils.AuditSuccess)
		return e.Next()
	})
}
