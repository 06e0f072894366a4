// Command calibrate is the interactive camera-calibration capture tool: it
// feeds camera frames through the capture pipeline until enough steady
// views of the board have been collected, runs the solver, and then renders
// a live undistorted preview.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"gocv.io/x/gocv"

	"github.com/banshee-data/calibkit/internal/board"
	"github.com/banshee-data/calibkit/internal/capture"
	"github.com/banshee-data/calibkit/internal/config"
	"github.com/banshee-data/calibkit/internal/dataset"
	"github.com/banshee-data/calibkit/internal/monitor"
	"github.com/banshee-data/calibkit/internal/report"
	"github.com/banshee-data/calibkit/internal/security"
	"github.com/banshee-data/calibkit/internal/version"
	"github.com/banshee-data/calibkit/internal/vision"
)

var (
	mode        = flag.String("mode", "capture", "Processing mode: capture or preview")
	boardType   = flag.String("board", "chessboard", "Board type: chessboard, charuco, acircles, dual_acircles")
	boardWidth  = flag.Int("board-width", 6, "Board grid columns (inner corners / circles / squares)")
	boardHeight = flag.Int("board-height", 9, "Board grid rows")
	device      = flag.String("camera", "0", "Camera device ID or video file path")
	dbFile      = flag.String("db", "calib_data.db", "Path to the SQLite database file (empty disables persistence)")
	target      = flag.Int("target", 0, "Captured-frame target (0 uses the tuning config)")
	configPath  = flag.String("config", "", "Path to a JSON tuning config")
	listen      = flag.String("listen", "", "HTTP listen address for the monitor server (empty disables)")
	plotsDir    = flag.String("plots", "", "Directory for post-run PNG reports (empty disables)")
	sessionID   = flag.String("session", "", "Session whose solver results the preview loads (preview mode)")
	windowName  = flag.String("window", "calibkit", "Display window name")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()
	if *showVersion {
		fmt.Println("calibrate", version.String())
		return
	}

	tuning := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("load tuning config: %v", err)
		}
		tuning = loaded
	}

	bt, err := board.ParseType(*boardType)
	if err != nil {
		log.Fatal(err)
	}
	geometry := board.Geometry{Type: bt, Size: board.Size{Width: *boardWidth, Height: *boardHeight}}

	data, err := dataset.New(geometry)
	if err != nil {
		log.Fatal(err)
	}

	var store *dataset.Store
	if *dbFile != "" {
		store, err = dataset.OpenStore(*dbFile)
		if err != nil {
			log.Fatal(err)
		}
		defer store.Close()
	}

	switch *mode {
	case "capture":
		err = runCapture(tuning, geometry, data, store)
	case "preview":
		err = runPreview(data, store)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		log.Fatal(err)
	}
}

// runCapture drives the capture state machine and, once complete, the
// solver and the undistorted preview.
func runCapture(tuning *config.TuningConfig, geometry board.Geometry, data *dataset.Dataset, store *dataset.Store) error {
	frameWidth := tuning.GetFrameWidth()
	frameHeight := tuning.GetFrameHeight()

	targetFrames := *target
	if targetFrames <= 0 {
		targetFrames = tuning.GetTargetFrames()
	}

	session, err := capture.NewSession(capture.SessionConfig{
		Geometry:         geometry,
		FrameWidth:       frameWidth,
		FrameHeight:      frameHeight,
		HistoryCapacity:  tuning.GetHistoryCapacity(),
		MaxOffsetDivisor: tuning.GetMaxOffsetDivisor(),
		TargetFrames:     targetFrames,
		SquareSize:       float32(tuning.GetSquareSize()),
		GridGap:          float32(tuning.GetDualGridGap()),
	}, data)
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.CreateSession(data.SessionID(), geometry, frameWidth, frameHeight); err != nil {
			return err
		}
		data.SetSink(store)
	}

	detector, err := vision.NewDetector(geometry, tuning)
	if err != nil {
		return err
	}
	if closer, ok := detector.(interface{ Close() error }); ok {
		defer closer.Close()
	}

	cam, err := gocv.OpenVideoCapture(*device)
	if err != nil {
		return fmt.Errorf("open capture source %q: %w", *device, err)
	}
	defer cam.Close()
	cam.Set(gocv.VideoCaptureFrameWidth, float64(frameWidth))
	cam.Set(gocv.VideoCaptureFrameHeight, float64(frameHeight))

	window := gocv.NewWindow(*windowName)
	defer window.Close()
	presenter := vision.WindowPresenter{Window: window}

	processor := vision.NewCaptureProcessor(detector, session, presenter, tuning.GetCaptureHold())
	startMonitor(data, session, store, frameWidth, frameHeight)

	log.Printf("capturing %s %dx%d board: target %d frames (session %s)",
		geometry.Type, geometry.Size.Width, geometry.Size.Height, targetFrames, data.SessionID())

	var active vision.FrameProcessor = processor
	previewing := false
	frame := gocv.NewMat()
	defer frame.Close()

	for {
		if ok := cam.Read(&frame); !ok {
			log.Printf("capture source closed")
			break
		}
		if frame.Empty() {
			continue
		}

		annotated := active.ProcessFrame(frame)
		window.IMShow(annotated)
		annotated.Close()

		if !previewing && processor.IsComplete() {
			if err := solveAndStore(data, store, frameWidth, frameHeight); err != nil {
				log.Printf("solver: %v", err)
				processor.Reset()
			} else {
				active = vision.NewPreviewProcessor(data)
				previewing = true
			}
		}

		switch window.WaitKey(30) {
		case 'q', 27: // esc
			writeReport(session, data, frameWidth, frameHeight)
			return nil
		case 'r':
			active = processor
			previewing = false
			processor.Reset()
			log.Printf("session reset (dataset keeps %d samples)", data.Len())
		case 'c':
			if data.Len() == 0 {
				log.Printf("no samples to solve yet")
				continue
			}
			if err := solveAndStore(data, store, frameWidth, frameHeight); err != nil {
				log.Printf("solver: %v", err)
			} else {
				active = vision.NewPreviewProcessor(data)
				previewing = true
			}
		}
	}

	writeReport(session, data, frameWidth, frameHeight)
	return nil
}

// runPreview renders the undistorted view using the solver results of a
// stored session; without results it shows the placeholder indicator.
func runPreview(data *dataset.Dataset, store *dataset.Store) error {
	if store != nil && *sessionID != "" {
		results, ok, err := store.LoadResults(*sessionID)
		if err != nil {
			return err
		}
		if ok {
			if err := data.SetResults(results); err != nil {
				return err
			}
			log.Printf("loaded results for session %s (RMS %.4f)", *sessionID, results.TotalAvgErr)
		} else {
			log.Printf("session %s has no solver results yet", *sessionID)
		}
	}

	cam, err := gocv.OpenVideoCapture(*device)
	if err != nil {
		return fmt.Errorf("open capture source %q: %w", *device, err)
	}
	defer cam.Close()

	window := gocv.NewWindow(*windowName)
	defer window.Close()

	startMonitor(data, nil, nil, 0, 0)
	preview := vision.NewPreviewProcessor(data)

	frame := gocv.NewMat()
	defer frame.Close()
	for {
		if ok := cam.Read(&frame); !ok {
			return nil
		}
		if frame.Empty() {
			continue
		}
		annotated := preview.ProcessFrame(frame)
		window.IMShow(annotated)
		annotated.Close()

		if key := window.WaitKey(30); key == 'q' || key == 27 {
			return nil
		}
	}
}

// startMonitor launches the HTTP monitor when -listen is set.
func startMonitor(data *dataset.Dataset, session *capture.Session, store *dataset.Store, frameWidth, frameHeight int) {
	if *listen == "" {
		return
	}
	ctx, _ := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address:     *listen,
		Dataset:     data,
		Session:     session,
		Store:       store,
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
	})
	go func() {
		if err := ws.Start(ctx); err != nil {
			log.Printf("monitor server: %v", err)
		}
	}()
}

// solveAndStore runs the solver and persists the results.
func solveAndStore(data *dataset.Dataset, store *dataset.Store, frameWidth, frameHeight int) error {
	results, err := vision.Solve(data, frameWidth, frameHeight)
	if err != nil {
		return err
	}
	log.Printf("calibrated: Fx=%d Fy=%d RMS=%.4f over %d samples",
		int(results.Fx()), int(results.Fy()), results.TotalAvgErr, data.Len())
	if store != nil {
		if err := store.SaveResults(data.SessionID(), results); err != nil {
			return err
		}
	}
	return nil
}

// writeReport renders the post-run PNG plots when -plots is set.
func writeReport(session *capture.Session, data *dataset.Dataset, frameWidth, frameHeight int) {
	if *plotsDir == "" {
		return
	}
	rep := report.SessionReport{
		SessionID:   data.SessionID(),
		FrameWidth:  frameWidth,
		FrameHeight: frameHeight,
		AnchorTrail: session.AnchorTrail(),
		Samples:     data.Samples(),
	}
	outDir := filepath.Join(*plotsDir, security.SanitizeFilename(data.SessionID()))
	if err := report.Write(rep, outDir); err != nil {
		log.Printf("write report: %v", err)
		return
	}
	log.Printf("report written to %s", outDir)
}
