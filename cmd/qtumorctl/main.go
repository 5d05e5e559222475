package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"qtumor/internal/classify"
	"qtumor/internal/config"
	"qtumor/internal/qpu"
	"qtumor/internal/store"
)

const usage = `usage:
  qtumorctl submit -features file.json [-config path]
  qtumorctl check -id JOB_ID [-threshold T] [-wait] [-interval 10s] [-timeout 30m] [-config path]`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{}))

	var err error
	switch os.Args[1] {
	case "submit":
		err = runSubmit(os.Args[2:], logger)
	case "check":
		err = runCheck(os.Args[2:], logger)
	case "-h", "--help", "help":
		fmt.Println(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}

func newClassifier(configPath string, logger *slog.Logger) (*classify.Service, func() error) {
	cfg := config.Load(configPath)

	st, closeStore, err := store.Open(cfg)
	if err != nil {
		log.Fatalf("open job store failed: %v", err)
	}
	svc, err := qpu.NewServiceFromConfig(cfg)
	if err != nil {
		log.Fatalf("runtime client failed: %v", err)
	}
	selector := qpu.NewSelector(svc, cfg.Runtime.Backend, qpu.BackendFilter{
		Operational: true,
		MinQubits:   cfg.Circuit.NumQubits,
	})
	return classify.NewService(cfg, svc, selector, st, logger), closeStore
}

func runSubmit(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("submit", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	featuresPath := fs.String("features", "", "JSON file with the feature vector")
	_ = fs.Parse(args)

	if *featuresPath == "" {
		return errors.New("-features is required")
	}
	features, err := readFeatures(*featuresPath)
	if err != nil {
		return err
	}

	cls, closeStore := newClassifier(*configPath, logger)
	defer closeStore()

	id, err := cls.Submit(context.Background(), features)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{"id": id})
}

func runCheck(args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	id := fs.String("id", "", "job id returned by submit")
	threshold := fs.Float64("threshold", classify.DefaultThreshold, "decision threshold")
	wait := fs.Bool("wait", false, "poll until the job leaves the pending state")
	interval := fs.Duration("interval", 10*time.Second, "poll interval with -wait")
	timeout := fs.Duration("timeout", 30*time.Minute, "give up waiting after this long")
	_ = fs.Parse(args)

	if *id == "" {
		return errors.New("-id is required")
	}

	cls, closeStore := newClassifier(*configPath, logger)
	defer closeStore()

	if !*wait {
		return printJSON(cls.Check(context.Background(), *id, *threshold))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()
	res, err := pollUntilSettled(ctx, cls, *id, *threshold, *interval)
	if perr := printJSON(res); perr != nil {
		return perr
	}
	return err
}

type checker interface {
	Check(ctx context.Context, id string, threshold float64) classify.Result
}

// pollUntilSettled calls Check every interval until the job is no longer
// pending or ctx expires. It returns the last result seen.
func pollUntilSettled(ctx context.Context, c checker, id string, threshold float64, interval time.Duration) (classify.Result, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		res := c.Check(ctx, id, threshold)
		if res.Status != classify.StatusPending {
			return res, nil
		}
		select {
		case <-ctx.Done():
			return res, fmt.Errorf("job %s still pending: %w", id, ctx.Err())
		case <-ticker.C:
		}
	}
}

// readFeatures accepts either a bare JSON array or {"features": [...]}.
func readFeatures(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return decodeFeatures(f)
}

func decodeFeatures(r io.Reader) ([]float64, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	var features []float64
	if err := json.Unmarshal(raw, &features); err == nil {
		return features, nil
	}
	var wrapped struct {
		Features []float64 `json:"features"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("decode features: %w", err)
	}
	return wrapped.Features, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
