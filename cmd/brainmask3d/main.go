package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/olekukonko/tablewriter"

	"brainmask3d/internal/models"
	"brainmask3d/pkg/atlas"
	"brainmask3d/pkg/config"
	"brainmask3d/pkg/fragments"
	"brainmask3d/pkg/labels"
	"brainmask3d/pkg/pipeline"
	"brainmask3d/pkg/tiffio"
)

func main() {
	// Parse command line arguments
	configPath := flag.String("config", "brainmask3d.yaml", "Path to YAML configuration file")
	inputDir := flag.String("input", "", "Directory containing the mask as TIFF slices")
	rawInput := flag.String("raw", "", "Raw uint32 volume file (alternative to -input, carries IDs above 16 bits)")
	structures := flag.String("structures", "", "Path to structures.json (overrides config)")
	outputDir := flag.String("out", ".", "Directory for output artifacts")
	minSize := flag.Int("min-size", -1, "Minimum fragment size in voxels (overrides config)")
	workers := flag.Int("cores", 0, "Number of CPU cores for fragment analysis (default: all available)")
	writeConfig := flag.Bool("write-config", false, "Write the default configuration to -config and exit")
	flag.Parse()

	if *writeConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputDir == "" && *rawInput == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *structures != "" {
		cfg.Atlas.StructuresFile = *structures
	}
	if *minSize >= 0 {
		cfg.Filter.MinFragmentSize = *minSize
	}
	if *workers > 0 {
		cfg.Filter.Workers = *workers
	}

	fmt.Println("================================")
	fmt.Println("BRAINMASK3D - ANATOMICAL MASK SIMPLIFICATION")
	fmt.Println("================================")

	fmt.Println("Loading atlas hierarchy...")
	hierarchy, err := atlas.LoadStructures(cfg.Atlas.StructuresFile)
	if err != nil {
		log.Fatalf("Failed to load atlas hierarchy: %v", err)
	}
	fmt.Printf("Loaded %d regions (root: %s)\n", hierarchy.NumRegions(), hierarchy.Root())

	fmt.Println("Loading input mask...")
	var vol *models.Volume
	if *rawInput != "" {
		vol, err = tiffio.ReadRaw(*rawInput)
	} else {
		vol, err = tiffio.ReadStack(*inputDir)
	}
	if err != nil {
		log.Fatalf("Failed to load mask: %v", err)
	}
	fmt.Printf("Loaded volume %dx%dx%d (%d foreground voxels)\n",
		vol.Width, vol.Height, vol.Depth, vol.CountNonzero())

	params := pipeline.Params{
		FlattenRegions:  cfg.Atlas.FlattenRegions,
		ExcludeRegions:  cfg.Atlas.ExcludeRegions,
		MinFragmentSize: cfg.Filter.MinFragmentSize,
		Connectivity:    fragments.Connectivity(cfg.Filter.Connectivity),
		MaxLabelValue:   cfg.Remap.MaxLabelValue,
		Workers:         cfg.Filter.Workers,
		Verbose:         true,
	}
	for _, rule := range cfg.Atlas.FlattenAtDepth {
		params.FlattenAtDepth = append(params.FlattenAtDepth, pipeline.DepthRule{
			Region: rule.Region,
			Depth:  rule.Depth,
		})
	}

	processor := pipeline.NewProcessor(params, hierarchy)
	startTime := time.Now()
	result, err := processor.Process(vol)
	if err != nil {
		// No artifact is written on failure.
		log.Fatalf("Processing failed: %v", err)
	}
	fmt.Printf("\nProcessing completed in %.2f seconds\n", time.Since(startTime).Seconds())

	if err := writeArtifacts(cfg, *outputDir, result); err != nil {
		log.Fatalf("Failed to write outputs: %v", err)
	}

	printSummary(result)
}

// writeArtifacts persists the adjusted mask, the whole-brain mask and
// both CSV tables. It runs only after the pipeline succeeded.
func writeArtifacts(cfg *config.Config, outDir string, result *pipeline.Result) error {
	adjustedDir := filepath.Join(outDir, cfg.Output.AdjustedMaskDir)
	fmt.Printf("Saving adjusted mask to %s\n", adjustedDir)
	if err := tiffio.WriteStack16(adjustedDir, result.Adjusted); err != nil {
		return err
	}

	wholeBrainDir := filepath.Join(outDir, cfg.Output.WholeBrainMaskDir)
	fmt.Printf("Saving whole-brain mask to %s\n", wholeBrainDir)
	if err := tiffio.WriteStack8(wholeBrainDir, result.WholeBrain); err != nil {
		return err
	}

	labelPath := filepath.Join(outDir, cfg.Output.LabelCSV)
	fmt.Printf("Saving region label mapping to %s\n", labelPath)
	if err := writeCSV(labelPath, func(f *os.File) error {
		return labels.WriteLabelCSV(f, result.Labels)
	}); err != nil {
		return err
	}

	fragmentPath := filepath.Join(outDir, cfg.Output.FragmentCSV)
	fmt.Printf("Saving fragment details to %s\n", fragmentPath)
	return writeCSV(fragmentPath, func(f *os.File) error {
		return labels.WriteFragmentCSV(f, result.Fragments)
	})
}

func writeCSV(path string, write func(*os.File) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return write(file)
}

// printSummary renders the run statistics and a preview of the label
// mapping as terminal tables.
func printSummary(result *pipeline.Result) {
	stats := result.Stats

	fmt.Println("\nRun summary:")
	summary := tablewriter.NewWriter(os.Stdout)
	summary.SetHeader([]string{"Metric", "Value"})
	summary.SetBorder(false)
	summary.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})
	summary.Append([]string{"Foreground voxels in", fmt.Sprintf("%d", stats.ForegroundIn)})
	summary.Append([]string{"Foreground voxels out", fmt.Sprintf("%d", stats.ForegroundOut)})
	summary.Append([]string{"Regions in", fmt.Sprintf("%d", stats.RegionsIn)})
	summary.Append([]string{"Regions out", fmt.Sprintf("%d", stats.RegionsOut)})
	summary.Append([]string{"Fragments kept", fmt.Sprintf("%d", stats.FragmentsKept)})
	summary.Append([]string{"Fragments removed", fmt.Sprintf("%d", stats.FragmentsRemoved)})
	summary.Append([]string{"Fragment size mean", fmt.Sprintf("%.1f", stats.FragmentMeanSize)})
	summary.Append([]string{"Fragment size median", fmt.Sprintf("%.1f", stats.FragmentMedianSize)})
	summary.Append([]string{"Remapped IDs", fmt.Sprintf("%d", stats.RemappedIDs)})
	summary.Append([]string{"Merge time", stats.MergeTime.Round(time.Millisecond).String()})
	summary.Append([]string{"Filter time", stats.FilterTime.Round(time.Millisecond).String()})
	summary.Append([]string{"Remap time", stats.RemapTime.Round(time.Millisecond).String()})
	summary.Render()

	const previewRows = 15
	fmt.Println("\nFinal regions:")
	preview := tablewriter.NewWriter(os.Stdout)
	preview.SetHeader([]string{"ID", "Acronym", "Name"})
	preview.SetBorder(false)
	for i, row := range result.Labels {
		if i >= previewRows {
			preview.SetFooter([]string{"", "", fmt.Sprintf("... %d more", len(result.Labels)-previewRows)})
			break
		}
		preview.Append([]string{fmt.Sprintf("%d", row.ID), row.Acronym, row.Name})
	}
	preview.Render()
}
