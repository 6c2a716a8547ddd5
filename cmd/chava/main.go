// Copyright 2026 Chava Systems
//
// Command-line session driver for obligation-gated objects

// Command chava is the CLI surface over the ObjectAlgebra, KMS and
// ObligationKeyedStore: create, show, discharge, unwrap, list, project,
// merge, audit and stats subcommands against a single store session.
//
// Grounded on main.go's flag.String/flag.Bool + log.SetFlags startup
// sequence, restyled around flag.NewFlagSet per-subcommand dispatch.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/chava-systems/chava/pkg/chava"
	"github.com/chava-systems/chava/pkg/config"
	"github.com/chava-systems/chava/pkg/evidence"
	"github.com/chava-systems/chava/pkg/index"
	"github.com/chava-systems/chava/pkg/kms"
	"github.com/chava-systems/chava/pkg/metrics"
	"github.com/chava-systems/chava/pkg/obligation"
	"github.com/chava-systems/chava/pkg/server"
	"github.com/chava-systems/chava/pkg/store"
	"github.com/chava-systems/chava/pkg/verifier"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("chava: load configuration: %v", err)
	}

	if cfg.KMSServerSecretPath == "" {
		// A CLI session without a configured secret still runs, using a
		// deterministic development secret — never for a live deployment.
		log.Printf("chava: CHAVA_KMS_SECRET_PATH not set, using an insecure development secret")
	}

	reg := metrics.NewRegistry(prometheus.DefaultRegisterer)

	secret, err := loadOrDefaultSecret(cfg)
	if err != nil {
		log.Fatalf("chava: %v", err)
	}
	kmsSvc := kms.NewService(secret, kms.WithMetrics(reg))

	snapshotPath := getEnv("CHAVA_SNAPSHOT_PATH", "chava-session.json")
	mapStore, err := store.LoadMapStoreFromFile(snapshotPath, kmsSvc, store.WithMetrics(reg))
	if err != nil {
		log.Fatalf("chava: load session: %v", err)
	}

	registry := verifier.GlobalRegistry()

	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "serve" {
		runServe(mapStore, reg, args)
		return
	}

	var cmdErr error
	switch cmd {
	case "create":
		cmdErr = runCreate(mapStore, args)
	case "show":
		cmdErr = runShow(mapStore, args)
	case "discharge":
		cmdErr = runDischarge(mapStore, registry, reg, args)
	case "unwrap":
		cmdErr = runUnwrap(mapStore, args)
	case "list":
		cmdErr = runList(mapStore, args)
	case "project":
		cmdErr = runProject(mapStore, args)
	case "merge":
		cmdErr = runMerge(mapStore, args)
	case "audit":
		cmdErr = runAudit(mapStore, args)
	case "stats":
		cmdErr = runStats(mapStore, args)
	case "help", "-h", "--help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "chava: unknown command %q\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "chava: %v\n", cmdErr)
		os.Exit(1)
	}

	if err := mapStore.SaveToFile(snapshotPath); err != nil {
		log.Fatalf("chava: save session: %v", err)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `usage: chava <command> [flags]

commands:
  create    --id ID --value JSON [--obligation KIND:SCOPE ...]
  show      --id ID
  discharge --id ID --kind KIND [--scope POINTER] [--verifier NAME]
  unwrap    --id ID
  list      [--kind KIND] [--cleared|--uncleared]
  project   --id ID --path POINTER [--as NEW_ID]
  merge     --left ID --right ID --as NEW_ID
  audit     [--verifier NAME] [--since UNIX_TS] [--until UNIX_TS]
  stats`)
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func loadOrDefaultSecret(cfg *config.Config) ([]byte, error) {
	if cfg.KMSServerSecretPath == "" {
		return []byte("chava-development-secret-do-not-use-in-production"), nil
	}
	return cfg.LoadServerSecret()
}

func parseObligations(raw []string) (obligation.Set, error) {
	out := make(obligation.Set, 0, len(raw))
	for _, r := range raw {
		parts := strings.SplitN(r, ":", 2)
		scope := ""
		if len(parts) == 2 {
			scope = parts[1]
		}
		ob, err := obligation.New(parts[0], scope)
		if err != nil {
			return nil, fmt.Errorf("parse obligation %q: %w", r, err)
		}
		out = append(out, ob)
	}
	return out, nil
}

func runCreate(s *store.MapStore, args []string) error {
	fs := flag.NewFlagSet("create", flag.ExitOnError)
	id := fs.String("id", "", "object id")
	valueRaw := fs.String("value", "null", "JSON value")
	var obligationsRaw multiFlag
	fs.Var(&obligationsRaw, "obligation", "KIND:SCOPE, repeatable")
	fs.Parse(args)

	if *id == "" {
		*id = uuid.New().String()
	}
	var value any
	if err := json.Unmarshal([]byte(*valueRaw), &value); err != nil {
		return fmt.Errorf("create: parse --value: %w", err)
	}
	obligations, err := parseObligations(obligationsRaw)
	if err != nil {
		return err
	}

	obj := chava.New(value, obligations)
	if err := s.Store(*id, obj); err != nil {
		return fmt.Errorf("create: %w", err)
	}
	log.Printf("created object %s with %d obligation(s)", *id, len(obligations))
	fmt.Println(*id)
	return nil
}

func runShow(s *store.MapStore, args []string) error {
	fs := flag.NewFlagSet("show", flag.ExitOnError)
	id := fs.String("id", "", "object id")
	fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("show: --id is required")
	}

	obj, err := s.PeekTrusted(*id)
	if err != nil {
		return fmt.Errorf("show: %w", err)
	}
	return printJSON(obj)
}

func runDischarge(s *store.MapStore, registry *verifier.Registry, reg *metrics.Registry, args []string) error {
	fs := flag.NewFlagSet("discharge", flag.ExitOnError)
	id := fs.String("id", "", "object id")
	kind := fs.String("kind", "", "obligation kind")
	scope := fs.String("scope", "", "JSON pointer scope")
	verifierID := fs.String("verifier", "cli", "verifier identity recorded in the evidence record")
	fs.Parse(args)
	if *id == "" || *kind == "" {
		return fmt.Errorf("discharge: --id and --kind are required")
	}

	obj, err := s.PeekTrusted(*id)
	if err != nil {
		return fmt.Errorf("discharge: %w", err)
	}
	discharged, err := chava.Discharge(obj, *kind, *scope, registry, *verifierID)
	if err != nil {
		return fmt.Errorf("discharge: %w", err)
	}
	if err := s.Store(*id, discharged); err != nil {
		return fmt.Errorf("discharge: %w", err)
	}
	if reg != nil {
		reg.DischargeTotal.WithLabelValues(dischargeOutcomeLabel(discharged)).Inc()
	}
	log.Printf("discharged %s/%s on %s: cleared=%t", *kind, *scope, *id, discharged.IsCleared())
	return nil
}

// dischargeOutcomeLabel mirrors pkg/chava.Handle's unexported outcome
// labeling for the single-shot discharge path the CLI exercises.
func dischargeOutcomeLabel(o chava.Object) string {
	if evidence.HasConflict(o.Evidence) {
		return "conflict"
	}
	if o.IsCleared() {
		return "cleared"
	}
	return "residual"
}

func runUnwrap(s *store.MapStore, args []string) error {
	fs := flag.NewFlagSet("unwrap", flag.ExitOnError)
	id := fs.String("id", "", "object id")
	fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("unwrap: --id is required")
	}

	obj, err := s.PeekTrusted(*id)
	if err != nil {
		return fmt.Errorf("unwrap: %w", err)
	}
	value, err := obj.Unwrap()
	if err != nil {
		return fmt.Errorf("unwrap: %w", err)
	}
	return printJSON(value)
}

func runList(s *store.MapStore, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	kind := fs.String("kind", "", "filter to objects carrying this obligation kind")
	cleared := fs.Bool("cleared", false, "only cleared objects")
	uncleared := fs.Bool("uncleared", false, "only uncleared objects")
	fs.Parse(args)

	ids := s.IDs()
	inverted := index.NewInvertedObligationIndex()
	for _, id := range ids {
		obj, err := s.PeekTrusted(id)
		if err != nil {
			continue
		}
		inverted.Rebuild(id, obj.Obligations)
	}

	candidates := ids
	if *kind != "" {
		candidates = inverted.ObjectsWithKind(*kind)
	}

	for _, id := range candidates {
		obj, err := s.PeekTrusted(id)
		if err != nil {
			continue
		}
		if *cleared && !obj.IsCleared() {
			continue
		}
		if *uncleared && obj.IsCleared() {
			continue
		}
		fmt.Printf("%s\tcleared=%t\tobligations=%d\n", id, obj.IsCleared(), len(obj.Obligations))
	}
	return nil
}

func runProject(s *store.MapStore, args []string) error {
	fs := flag.NewFlagSet("project", flag.ExitOnError)
	id := fs.String("id", "", "source object id")
	path := fs.String("path", "", "JSON pointer")
	as := fs.String("as", "", "id to store the projection under; prints to stdout if empty")
	fs.Parse(args)
	if *id == "" {
		return fmt.Errorf("project: --id is required")
	}

	obj, err := s.PeekTrusted(*id)
	if err != nil {
		return fmt.Errorf("project: %w", err)
	}
	projected := obj.Project(*path)
	if *as == "" {
		return printJSON(projected)
	}
	if err := s.Store(*as, projected); err != nil {
		return fmt.Errorf("project: %w", err)
	}
	log.Printf("stored projection of %s at %q as %s", *id, *path, *as)
	return nil
}

func runMerge(s *store.MapStore, args []string) error {
	fs := flag.NewFlagSet("merge", flag.ExitOnError)
	left := fs.String("left", "", "left object id")
	right := fs.String("right", "", "right object id")
	as := fs.String("as", "", "id to store the merged object under")
	fs.Parse(args)
	if *left == "" || *right == "" || *as == "" {
		return fmt.Errorf("merge: --left, --right and --as are required")
	}

	leftObj, err := s.PeekTrusted(*left)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	rightObj, err := s.PeekTrusted(*right)
	if err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	merged := leftObj.Merge(rightObj)
	if err := s.Store(*as, merged); err != nil {
		return fmt.Errorf("merge: %w", err)
	}
	log.Printf("stored merge of %s and %s as %s", *left, *right, *as)
	return nil
}

func runAudit(s *store.MapStore, args []string) error {
	fs := flag.NewFlagSet("audit", flag.ExitOnError)
	verifierID := fs.String("verifier", "", "filter to this verifier identity")
	since := fs.Float64("since", 0, "inclusive start unix timestamp")
	until := fs.Float64("until", 0, "inclusive end unix timestamp, 0 means unbounded")
	fs.Parse(args)

	evLog := index.NewEvidenceLogIndex()
	for _, id := range s.IDs() {
		obj, err := s.PeekTrusted(id)
		if err != nil {
			continue
		}
		for _, rec := range obj.Evidence {
			evLog.Add(id, rec)
		}
	}

	upper := *until
	if upper == 0 {
		upper = 1 << 62
	}

	var entries []index.EvidenceEntry
	if *verifierID != "" {
		entries = evLog.ByVerifier(*verifierID)
	} else {
		entries = evLog.TimeRange(*since, upper)
	}
	for _, e := range entries {
		if e.Record.Timestamp < *since || e.Record.Timestamp > upper {
			continue
		}
		fmt.Printf("%s\t%s\t%s\t%s\t%s\n", e.ObjID, e.Record.VerifierID, e.Record.Kind, e.Record.Result, formatTimestamp(e.Record.Timestamp))
	}
	return nil
}

func runServe(s *store.MapStore, reg *metrics.Registry, args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	listenAddr := fs.String("listen-addr", "", "object API listen address, overrides CHAVA_LISTEN_ADDR")
	metricsAddr := fs.String("metrics-addr", "", "metrics listen address, overrides CHAVA_METRICS_ADDR")
	fs.Parse(args)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("chava: load configuration: %v", err)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	handlers := server.NewObjectHandlers(s, log.New(log.Writer(), "[chava:api] ", log.LstdFlags), reg)
	apiMux := server.NewRouter(handlers)

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metrics.Handler())

	go func() {
		log.Printf("chava: metrics listening on %s", cfg.MetricsAddr)
		if err := http.ListenAndServe(cfg.MetricsAddr, metricsMux); err != nil {
			log.Printf("chava: metrics server stopped: %v", err)
		}
	}()

	log.Printf("chava: object API listening on %s", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, apiMux); err != nil {
		log.Fatalf("chava: object API server stopped: %v", err)
	}
}

func runStats(s *store.MapStore, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Parse(args)

	ids := s.IDs()
	var clearedCount, conflictCount int
	kindCounts := make(map[string]int)
	for _, id := range ids {
		obj, err := s.PeekTrusted(id)
		if err != nil {
			continue
		}
		if obj.IsCleared() {
			clearedCount++
		}
		if evidence.HasConflict(obj.Evidence) {
			conflictCount++
		}
		for _, ob := range obj.Obligations {
			kindCounts[ob.Kind]++
		}
	}

	fmt.Printf("objects: %d\ncleared: %d\nconflicted: %d\n", len(ids), clearedCount, conflictCount)
	for kind, count := range kindCounts {
		fmt.Printf("obligation[%s]: %d\n", kind, count)
	}
	return nil
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func formatTimestamp(ts float64) string {
	return strconv.FormatFloat(ts, 'f', 3, 64)
}

// multiFlag accumulates repeated -flag=value occurrences into a slice.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}
