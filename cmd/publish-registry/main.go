package main

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/facebookgo/clock"
	"github.com/spf13/cobra"

	publisher "github.com/git-pkgs/publisher"
	"github.com/git-pkgs/publisher/client"
	"github.com/git-pkgs/publisher/internal/artifact"
	"github.com/git-pkgs/publisher/internal/config"
	"github.com/git-pkgs/publisher/internal/core"
	"github.com/git-pkgs/publisher/internal/npm"
	"github.com/git-pkgs/publisher/internal/tagcache"
)

var (
	configPath   string
	versionsPath string
	outputDir    string
	dryRun       bool
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "publish-registry",
	})

	rootCmd := &cobra.Command{
		Use:   "publish-registry",
		Short: "Publishes the generated registry manifest to npm",
		Long: "publish-registry decides whether the generated registry document should be " +
			"published, re-tagged as latest, or skipped, and refuses any transition that " +
			"would roll the public artifact back.",
	}

	publishCmd := &cobra.Command{
		Use:   "publish",
		Short: "Run one publish decision",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, logger)
		},
	}

	publishCmd.Flags().StringVarP(&configPath, "config", "c", "publisher.yaml", "Config file path")
	publishCmd.Flags().StringVar(&versionsPath, "versions", "versions.json", "Dist-tag maps produced by the version calculation step")
	publishCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory override")
	publishCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Perform every step except the publish and tag calls")

	rootCmd.AddCommand(publishCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runPublish(cmd *cobra.Command, logger *log.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}
	if dryRun {
		cfg.DryRun = true
	}

	exempt := make([]string, 0, len(cfg.NotNeeded))
	for _, key := range cfg.NotNeeded {
		name, err := publisher.ParsePackageKey(key)
		if err != nil {
			return err
		}
		exempt = append(exempt, name)
	}

	httpClient := client.NewClient(client.WithAuthToken(cfg.Token))
	registry := npm.NewBreakerRegistry(npm.New(cfg.RegistryURL, httpClient))

	cache := tagcache.New(registry)
	packages, err := seedCache(cache, versionsPath)
	if err != nil {
		return err
	}
	logger.Info("building candidate registry", "packages", len(packages))

	candidate, err := core.BuildRegistry(packages, cache)
	if err != nil {
		return err
	}

	engine := core.NewEngine(core.Config{
		PackageName:      cfg.PackageName,
		OutputDir:        cfg.OutputDir,
		Cooldown:         cfg.Cooldown(),
		PropagationDelay: cfg.PropagationDelay(),
		DryRun:           cfg.DryRun,
		NotNeeded:        exempt,
	}, registry, registry, registry, artifact.NewSink(), clock.New(), logger)

	result, err := engine.Run(cmd.Context(), candidate)
	if err != nil {
		return err
	}

	switch result.Outcome {
	case core.OutcomeRetagLatest:
		logger.Info("tagged existing version as latest", "version", result.NewVersion)
	case core.OutcomePublishNew:
		logger.Info("published new registry version", "version", result.NewVersion,
			"url", client.PackageURL(cfg.PackageName, result.NewVersion.String()))
	default:
		logger.Info("nothing to publish", "reason", result.Reason)
	}
	return nil
}

// seedCache loads the dist-tag maps computed by the upstream version
// calculation and returns the package list in deterministic order.
func seedCache(cache *tagcache.Cache, path string) ([]core.PackageKeyer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var tags map[string]map[string]string
	if err := json.Unmarshal(data, &tags); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	sort.Strings(names)

	packages := make([]core.PackageKeyer, len(names))
	for i, name := range names {
		cache.Put(name, tags[name])
		packages[i] = core.PackageKey(name)
	}
	return packages, nil
}
