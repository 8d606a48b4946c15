package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/rehberapp/rehber-go/internal/backup"
	"github.com/rehberapp/rehber-go/internal/importer"
	"github.com/rehberapp/rehber-go/internal/models"
	"github.com/rehberapp/rehber-go/internal/store"
)

// RegisterDefaultJobs wires up the jobs that can be triggered from the
// admin API or the scheduler.
func RegisterDefaultJobs(jm *JobManager) {
	jm.Register("backup", "Data Backup", runBackup)
	jm.Register("import-scan", "e-Okul Import Scan", runImportScan)
}

// StartJobs starts the background job scheduler.
func StartJobs(app JobContext) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()

	startRegistrySweep(s, app)
	startNightlyBackup(s, app)

	log.Println("Starting background job scheduler...")
	s.StartAsync()
}

// startRegistrySweep evicts expired terminal transfer jobs on a fixed
// interval so the registry does not grow without bound.
func startRegistrySweep(s *gocron.Scheduler, app JobContext) {
	interval := app.Config().Mebbis.SweepIntervalMins
	if interval == 0 {
		log.Println("Transfer sweep interval is 0, registry sweeping is disabled.")
		return
	}

	_, err := s.Every(interval).Minutes().Do(func() {
		if evicted := app.TransferRegistry().SweepExpired(); evicted > 0 {
			log.Printf("Swept %d expired transfer jobs", evicted)
		}
	})
	if err != nil {
		log.Printf("Error scheduling transfer sweep: %v", err)
	}
}

func startNightlyBackup(s *gocron.Scheduler, app JobContext) {
	_, err := s.Every(1).Day().At("03:00").Do(func() {
		log.Println("Scheduler is triggering job: backup")
		// Submit the job to the manager instead of running it directly.
		// This prevents conflicts with manually triggered jobs.
		if err := app.JobManager().RunJob("backup", app); err != nil {
			log.Printf("Scheduled backup could not start: %v", err)
		}
	})
	if err != nil {
		log.Printf("Error scheduling nightly backup: %v", err)
	}
}

func runBackup(ctx JobContext) {
	cfg := ctx.Config()
	sendProgress(ctx, "backup", "Creating backup archive...", 10, false)

	target, err := backup.Run(context.Background(), cfg.Database.Path, cfg.Photos.Path, cfg.Backup.Path)
	if err != nil {
		sendProgress(ctx, "backup", fmt.Sprintf("Backup failed: %v", err), 100, true)
		panic(err)
	}

	sendProgress(ctx, "backup", fmt.Sprintf("Backup written to %s", target), 100, true)
}

func runImportScan(ctx JobContext) {
	cfg := ctx.Config()
	sendProgress(ctx, "import-scan", "Scanning import directory...", 10, false)

	im := importer.New(store.New(ctx.DB()))
	count, err := im.ScanDirectory(cfg.Import.Path)
	if err != nil {
		sendProgress(ctx, "import-scan", fmt.Sprintf("Import scan failed: %v", err), 100, true)
		panic(err)
	}

	sendProgress(ctx, "import-scan", fmt.Sprintf("Imported %d students", count), 100, true)
}

// sendProgress sends a progress update via WebSocket to connected clients.
func sendProgress(ctx JobContext, jobID, message string, progress float64, done bool) {
	update := models.ProgressUpdate{
		JobID:    jobID,
		Message:  message,
		Progress: progress,
		Done:     done,
	}
	ctx.WsHub().BroadcastJSON(update)
}
