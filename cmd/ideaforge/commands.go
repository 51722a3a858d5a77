package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/ideaforge/internal/api"
	"github.com/kalambet/ideaforge/internal/artifact"
	"github.com/kalambet/ideaforge/internal/config"
	"github.com/kalambet/ideaforge/internal/consult"
	"github.com/kalambet/ideaforge/internal/diagrams"
	"github.com/kalambet/ideaforge/internal/llm"
	"github.com/kalambet/ideaforge/internal/persona"
	"github.com/kalambet/ideaforge/internal/skills"
	"github.com/kalambet/ideaforge/internal/storage"
	"github.com/kalambet/ideaforge/internal/structured"
	"github.com/kalambet/ideaforge/internal/swarm"
)

func setupLogging(cfg config.Config) {
	level := slog.LevelInfo
	if strings.EqualFold(cfg.Log.Level, "debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

// buildEngine wires the shared call stack: OpenRouter client, retrying
// caller, and JSON extraction with one repair round.
func buildEngine(cfg config.Config) (*llm.Caller, *structured.Repairer) {
	client := llm.NewClientWithBaseURL(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	caller := llm.NewCaller(client, time.Now().UnixNano()).WithMaxAttempts(cfg.LLM.MaxAttempts)
	return caller, structured.NewRepairer(caller)
}

// buildPersonaFeed picks the persona source: a local JSONL file when
// configured, the Hugging Face dataset otherwise.
func buildPersonaFeed(cfg config.Config) *persona.Feed {
	seed := int64(cfg.Persona.Seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Persona.File != "" {
		return persona.NewFeed(persona.NewFileSource(cfg.Persona.File, seed))
	}
	return persona.NewFeed(persona.NewHubSource(seed).WithDataset(cfg.Persona.Dataset))
}

func loadBriefInput(cmd *cobra.Command, args []string) (swarm.BriefInput, error) {
	query := strings.Join(args, " ")
	profilePath, _ := cmd.Flags().GetString("profile")
	skillsPaths, _ := cmd.Flags().GetStringSlice("skills")
	extra, _ := cmd.Flags().GetString("extra")

	var profile map[string]any
	if profilePath != "" {
		data, err := os.ReadFile(profilePath)
		if err != nil {
			return swarm.BriefInput{}, fmt.Errorf("reading profile: %w", err)
		}
		if err := json.Unmarshal(data, &profile); err != nil {
			return swarm.BriefInput{}, fmt.Errorf("parsing profile JSON: %w", err)
		}
	}

	skillsText, err := skills.LoadDocs(skillsPaths)
	if err != nil {
		return swarm.BriefInput{}, err
	}

	if query == "" && skillsText == "" && len(profile) == 0 {
		return swarm.BriefInput{}, fmt.Errorf("nothing to work with: pass a query, --profile, or --skills")
	}

	return swarm.BriefInput{
		Profile:    profile,
		Query:      query,
		SkillsText: skillsText,
		Extra:      extra,
	}, nil
}

// --- run ---

var runCmd = &cobra.Command{
	Use:   "run [query...]",
	Short: "Run a full brainstorm: generation, critique panel, shortlist",
	Long: `Run a full brainstorm: persona-conditioned idea generation, a critic
panel over every surviving idea, and a final ranked shortlist.

Examples:
  ideaforge run "side business for a welder in rural Ohio"
  ideaforge run --profile me.json --skills resume.pdf "what should I build?"
  ideaforge run --workers 12 --critics 8 --top-k 5 "b2b services"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)
		applySwarmFlags(cmd, &cfg)

		in, err := loadBriefInput(cmd, args)
		if err != nil {
			return err
		}
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}

		caller, repairer := buildEngine(cfg)
		sup := swarm.NewSupervisor(swarm.Config{
			Model:             cfg.LLM.Model,
			WorkerCount:       cfg.Swarm.WorkerCount,
			CriticCount:       cfg.Swarm.CriticCount,
			TopK:              cfg.Swarm.TopK,
			WorkerParallelism: cfg.Swarm.WorkerParallelism,
			CriticParallelism: cfg.Swarm.CriticParallelism,
		}, caller, repairer, buildPersonaFeed(cfg))

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		printStep("Generating with %d workers, %d critics...", cfg.Swarm.WorkerCount, cfg.Swarm.CriticCount)
		result, err := sup.Run(ctx, in)
		if err != nil {
			return err
		}
		if result.Degraded {
			printWarning("Degraded run: %s", result.DegradedReason)
		}

		runID := api.NewRunID()
		runDir, err := saveRunArtifacts(cfg, runID, result)
		if err != nil {
			printWarning("could not write artifacts: %v", err)
		} else {
			printStatus("Artifacts", "%s", runDir)
		}

		noSave, _ := cmd.Flags().GetBool("no-save")
		if !noSave {
			if err := catalogRun(cfg, runID, in.Query, result); err != nil {
				printWarning("could not catalog run: %v", err)
			}
		}

		printShortlist(result)
		printStatus("Run", "%s", runID)
		return nil
	},
}

func applySwarmFlags(cmd *cobra.Command, cfg *config.Config) {
	if n, _ := cmd.Flags().GetInt("workers"); n > 0 {
		cfg.Swarm.WorkerCount = n
	}
	if n, _ := cmd.Flags().GetInt("critics"); n > 0 {
		cfg.Swarm.CriticCount = n
	}
	if n, _ := cmd.Flags().GetInt("top-k"); n > 0 {
		cfg.Swarm.TopK = n
	}
	if m, _ := cmd.Flags().GetString("model"); m != "" {
		cfg.LLM.Model = m
	}
}

func saveRunArtifacts(cfg config.Config, runID string, result *swarm.Result) (string, error) {
	store, err := artifact.NewStore(filepath.Join(cfg.Storage.DataDir, "runs", runID))
	if err != nil {
		return "", err
	}

	if err := store.WriteText("brief.txt", result.Brief); err != nil {
		return "", err
	}
	for name, payload := range map[string]any{
		"ideas.json":     result.Ideas,
		"critiques.json": result.Critiques,
		"aggregate.json": result.Aggregate,
		"shortlist.json": result.Shortlist,
	} {
		if err := store.WriteJSON(name, payload); err != nil {
			return "", err
		}
		store.Add(strings.TrimSuffix(name, ".json"), name)
	}
	store.Add("brief", "brief.txt")

	criticNames := make([]string, 0, len(result.Critiques))
	seen := map[string]bool{}
	for _, c := range result.Critiques {
		if !seen[c.CriticName] {
			seen[c.CriticName] = true
			criticNames = append(criticNames, c.CriticName)
		}
	}
	if err := diagrams.Write(store.RunDir(), runID, criticNames); err != nil {
		return "", err
	}

	if err := store.Flush(); err != nil {
		return "", err
	}
	return store.RunDir(), nil
}

func catalogRun(cfg config.Config, runID, query string, result *swarm.Result) error {
	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()
	return api.CatalogSwarmRun(store, runID, cfg.LLM.Model, query, result)
}

func printShortlist(result *swarm.Result) {
	byID := make(map[string]swarm.Idea, len(result.Ideas))
	for _, idea := range result.Ideas {
		byID[idea.ID] = idea
	}

	fmt.Println()
	fmt.Println(colorize(colorBold, "Shortlist"))
	for i, e := range result.Shortlist.Entries {
		name := e.IdeaID
		if idea, ok := byID[e.IdeaID]; ok && idea.Name != "" {
			name = idea.Name
		}
		decision := e.Decision
		switch decision {
		case swarm.VerdictAdvance:
			decision = colorize(colorGreen, decision)
		case swarm.VerdictArchive:
			decision = colorize(colorRed, decision)
		default:
			decision = colorize(colorYellow, decision)
		}
		fmt.Printf("%2d. %s [%s, %.1f]\n", i+1, colorize(colorBold, name), decision, e.OverallScore)
		if e.Rationale != "" {
			fmt.Printf("    %s\n", e.Rationale)
		}
		for _, a := range e.NextActions {
			fmt.Printf("    - %s\n", a)
		}
	}
	if result.Shortlist.Notes != "" {
		fmt.Printf("\n%s %s\n", colorize(colorBold, "Notes:"), result.Shortlist.Notes)
	}
}

func init() {
	runCmd.Flags().String("profile", "", "path to a JSON profile file")
	runCmd.Flags().StringSlice("skills", nil, "skill documents (.md, .txt, .pdf); repeatable")
	runCmd.Flags().String("extra", "", "extra context for the brief")
	runCmd.Flags().Int("workers", 0, "number of idea workers")
	runCmd.Flags().Int("critics", 0, "number of critic lenses")
	runCmd.Flags().Int("top-k", 0, "shortlist size")
	runCmd.Flags().String("model", "", "override the configured model")
	runCmd.Flags().Bool("no-save", false, "skip the run catalog")
}

// --- consult ---

var consultCmd = &cobra.Command{
	Use:   "consult [query...]",
	Short: "Run the consulting pipeline: framing, pods, synthesis, QA, deck",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		setupLogging(cfg)
		if m, _ := cmd.Flags().GetString("model"); m != "" {
			cfg.LLM.Model = m
		}

		in, err := loadBriefInput(cmd, args)
		if err != nil {
			return err
		}
		if strings.TrimSpace(in.Query) == "" {
			return fmt.Errorf("consult requires a query")
		}
		if err := cfg.RequireAPIKey(); err != nil {
			return err
		}

		caller, repairer := buildEngine(cfg)
		pipeline := consult.NewPipeline(caller, repairer, cfg.LLM.Model)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		runID := api.NewRunID()
		printStep("Running consulting case %s...", runID)
		c, err := pipeline.Run(ctx, runID, consult.Input{
			Profile:    in.Profile,
			Query:      in.Query,
			SkillsText: in.SkillsText,
			Extra:      in.Extra,
		})
		if err != nil {
			return err
		}

		if dir, err := saveCaseArtifacts(cfg, runID, c); err != nil {
			printWarning("could not write artifacts: %v", err)
		} else {
			printStatus("Artifacts", "%s", dir)
		}

		noSave, _ := cmd.Flags().GetBool("no-save")
		if !noSave {
			store, err := storage.Open(cfg.Storage.DataDir)
			if err != nil {
				printWarning("could not open catalog: %v", err)
			} else {
				defer store.Close()
				if err := api.CatalogConsultRun(store, runID, cfg.LLM.Model, in.Query, c); err != nil {
					printWarning("could not catalog case: %v", err)
				}
			}
		}

		printDeckOutline(c.State.Deliverables.DeckOutline)
		printStatus("Case", "%s", runID)
		return nil
	},
}

func saveCaseArtifacts(cfg config.Config, runID string, c *consult.Case) (string, error) {
	store, err := artifact.NewStore(filepath.Join(cfg.Storage.DataDir, "runs", runID))
	if err != nil {
		return "", err
	}
	if err := store.WriteText("brief.txt", c.State.Brief); err != nil {
		return "", err
	}
	if err := store.WriteJSON("case.json", c); err != nil {
		return "", err
	}
	if err := store.WriteJSON("deck_outline.json", c.State.Deliverables.DeckOutline); err != nil {
		return "", err
	}
	if err := store.WriteText("run_flow.mmd", c.State.Deliverables.MermaidRunFlow); err != nil {
		return "", err
	}
	store.Add("brief", "brief.txt")
	store.Add("case", "case.json")
	store.Add("deck_outline", "deck_outline.json")
	if err := store.Flush(); err != nil {
		return "", err
	}
	return store.RunDir(), nil
}

func printDeckOutline(deck consult.DeckOutline) {
	fmt.Println()
	fmt.Println(colorize(colorBold, deck.Title))
	for i, slide := range deck.Slides {
		fmt.Printf("%2d. %s\n", i+1, slide.Title)
		for _, b := range slide.Bullets {
			fmt.Printf("    - %s\n", b)
		}
	}
}

func init() {
	consultCmd.Flags().String("profile", "", "path to a JSON profile file")
	consultCmd.Flags().StringSlice("skills", nil, "skill documents (.md, .txt, .pdf); repeatable")
	consultCmd.Flags().String("extra", "", "extra context for the brief")
	consultCmd.Flags().String("model", "", "override the configured model")
	consultCmd.Flags().Bool("no-save", false, "skip the run catalog")
}

// --- runs ---

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the run catalog",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns(limit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No runs yet.")
			return nil
		}
		for _, r := range runs {
			line := fmt.Sprintf("%s  %s  %-7s  ideas=%d", r.ID, r.CreatedAt.Format("2006-01-02 15:04"), r.Mode, r.IdeaCount)
			if r.Degraded {
				line += "  " + colorize(colorYellow, "degraded")
			}
			fmt.Println(line)
			if r.Query != "" {
				fmt.Printf("    %s\n", truncate(r.Query, 100))
			}
		}
		return nil
	},
}

var runsShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Print one run's full result JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		run, err := store.GetRun(args[0])
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("run %s not found", args[0])
		}
		if err != nil {
			return err
		}

		var pretty any
		if err := json.Unmarshal([]byte(run.ResultJSON), &pretty); err != nil {
			fmt.Println(run.ResultJSON)
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(pretty)
	},
}

var runsDeleteCmd = &cobra.Command{
	Use:   "delete <run-id>",
	Short: "Delete a run from the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := storage.Open(cfg.Storage.DataDir)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.DeleteRun(args[0]); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				return fmt.Errorf("run %s not found", args[0])
			}
			return err
		}
		printSuccess("Deleted %s", args[0])
		return nil
	},
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func init() {
	runsListCmd.Flags().Int("limit", 20, "maximum number of runs")
	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsDeleteCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
