package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"pilroi/pkg/config"
	"pilroi/pkg/detector"
	"pilroi/pkg/export"
	"pilroi/pkg/metadata"
	"pilroi/pkg/roi"
	"pilroi/pkg/scan"
	"pilroi/pkg/visualization"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "pilroi.yaml", "YAML configuration file")
	scanPath := flag.String("scan", "", "Scan table (.csv) written by the beamline control software")
	imageDir := flag.String("images", "", "Directory containing the scan's .raw Pilatus frames")
	beamline := flag.String("bl", "", "Beamline layout, 72 or 21 (overrides config)")
	lim1 := flag.Int("lim1", -1, "Crop window start column (overrides config)")
	lim2 := flag.Int("lim2", -1, "Crop window end column, exclusive (overrides config)")
	output := flag.String("output", "", "Result table, .csv or .xlsx (overrides config)")
	writeConfig := flag.Bool("write-config", false, "Write a default configuration file to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *scanPath == "" || *imageDir == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *beamline != "" {
		cfg.Scan.Beamline = *beamline
	}
	if err := applyCropFlags(cfg, *lim1, *lim2); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}
	if *output != "" {
		cfg.Output.ResultFile = *output
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("%v", err)
	}

	start := time.Now()
	if err := run(cfg, *scanPath, *imageDir); err != nil {
		log.Fatalf("Reduction failed: %v", err)
	}
	if cfg.Output.Verbose {
		fmt.Printf("\nReduction completed in %.2f seconds\n", time.Since(start).Seconds())
	}
}

// applyCropFlags overrides the configured crop window when both -lim1 and
// -lim2 are given. Negative values mean the flag was not set.
func applyCropFlags(cfg *config.Config, lim1, lim2 int) error {
	switch {
	case lim1 < 0 && lim2 < 0:
		return nil
	case lim1 < 0 || lim2 < 0:
		return fmt.Errorf("-lim1 and -lim2 must be given together")
	}
	cfg.Crop.Lim1, cfg.Crop.Lim2 = lim1, lim2
	cfg.Crop.Suggest = false
	return nil
}

func run(cfg *config.Config, scanPath, imageDir string) error {
	logf := func(format string, args ...interface{}) {
		if cfg.Output.Verbose {
			fmt.Printf(format, args...)
		}
	}

	layout, err := cfg.Layout()
	if err != nil {
		return err
	}
	coeffs, err := cfg.Coefficients()
	if err != nil {
		return err
	}

	logf("Step 1: Reading scan table %s (beamline %s)...\n", scanPath, layout)
	table, err := metadata.ReadCSV(scanPath)
	if err != nil {
		return err
	}
	rows, err := table.Rows(layout)
	if err != nil {
		return err
	}

	frames, err := detector.ListOrdered(imageDir)
	if err != nil {
		return err
	}
	logf("Found %d scan points and %d frames\n", len(rows), len(frames))

	logf("Step 2: Assembling scan with %d workers...\n", cfg.Scan.NumWorkers)
	s, err := scan.Assemble(rows, frames, detector.NewDirStore(), scan.Params{
		Layout:       layout,
		Coefficients: coeffs,
		NumWorkers:   cfg.Scan.NumWorkers,
	})
	if err != nil {
		return err
	}

	l1, l2 := cfg.Crop.Lim1, cfg.Crop.Lim2
	if cfg.Crop.Suggest {
		l1, l2, err = s.SuggestCropWindow(cfg.Crop.Window, cfg.Crop.Center)
		if err != nil {
			return err
		}
		logf("Suggested crop window [%d, %d) from mean profile\n", l1, l2)
	}

	logf("Step 3: Cropping frames to columns [%d, %d)...\n", l1, l2)
	if err := s.Crop(l1, l2); err != nil {
		return err
	}
	if drift, err := s.PeakSummary(); err == nil {
		logf("Peak column: mean %.1f, std %.2f, range [%d, %d]\n", drift.Mean, drift.StdDev, drift.Min, drift.Max)
	}

	logf("Step 4: Integrating %s ROI (%dx%d)...\n", cfg.ROI.Mode, cfg.ROI.Height, cfg.ROI.Width)
	var sel roi.Selection
	switch cfg.ROI.Mode {
	case config.ROITrack:
		masks, err := roi.TrackCenter(s, cfg.ROI.CenY, cfg.ROI.Height, cfg.ROI.Width)
		if err != nil {
			return err
		}
		sel = masks
	default:
		frameRows, frameCols := s.FrameShape()
		mask, err := roi.MakeMask(frameRows, l2-l1, cfg.ROI.CenX, cfg.ROI.CenY, cfg.ROI.Height, cfg.ROI.Width)
		if err != nil {
			return fmt.Errorf("fixed ROI on %dx%d crop of %d-column frames: %w", frameRows, l2-l1, frameCols, err)
		}
		sel = roi.Fixed{Mask: mask}
	}

	signal, err := roi.Extract(s, sel)
	if err != nil {
		return err
	}

	result, err := export.Build(s, signal)
	if err != nil {
		return err
	}
	if err := export.Save(cfg.Output.ResultFile, result); err != nil {
		return fmt.Errorf("failed to save results: %w", err)
	}
	logf("Results for %d points saved to %s\n", s.Len(), cfg.Output.ResultFile)

	if cfg.Output.ImagesDir != "" {
		viewer, err := visualization.NewViewer(s, cfg.Output.VMin, cfg.Output.VMax)
		if err != nil {
			return err
		}
		dir := filepath.Clean(cfg.Output.ImagesDir)
		if err := viewer.SaveSequence(dir, true, 40); err != nil {
			log.Printf("Warning: Failed to save frame images: %v", err)
		} else {
			logf("Frame images saved to %s\n", dir)
		}
	}

	return nil
}
