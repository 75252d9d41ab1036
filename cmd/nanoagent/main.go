package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/hbbio/nanoagent/pkg/adapters/model"
	_ "github.com/hbbio/nanoagent/pkg/adapters/model/gemini"
	_ "github.com/hbbio/nanoagent/pkg/adapters/model/openai"
	"github.com/hbbio/nanoagent/pkg/agent"
	"github.com/hbbio/nanoagent/pkg/agent/tools"
	"github.com/hbbio/nanoagent/pkg/otel"
	"github.com/hbbio/nanoagent/pkg/runstore"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	var (
		showVersion bool
		provider    string
		modelName   string
		steps       int
		debug       bool
		trace       bool
		dbURL       string
		maxTokens   int
		goal        string
	)

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.StringVar(&provider, "provider", getEnv("NANOAGENT_PROVIDER", "openai"), "model provider")
	flag.StringVar(&modelName, "model", getEnv("NANOAGENT_MODEL", ""), "model name")
	flag.IntVar(&steps, "steps", 16, "step budget (0 runs nothing)")
	flag.BoolVar(&debug, "debug", false, "log full message history each step")
	flag.BoolVar(&trace, "trace", false, "emit traces to stdout")
	flag.StringVar(&dbURL, "db", getEnv("NANOAGENT_DB", ""), "snapshot database url, e.g. sqlite:file:runs.sqlite")
	flag.IntVar(&maxTokens, "max-tokens", 0, "history token budget sent upstream (0 = unbounded)")
	flag.StringVar(&goal, "goal", "", "substring marking the goal as reached")
	flag.Parse()

	if showVersion {
		fmt.Printf("nanoagent %s (commit=%s, date=%s)\n", version, commit, date)
		return
	}

	prompt := strings.Join(flag.Args(), " ")
	if prompt == "" {
		fmt.Fprintln(os.Stderr, "usage: nanoagent [flags] <prompt>")
		os.Exit(2)
	}

	if err := run(context.Background(), prompt, provider, modelName, steps, debug, trace, dbURL, maxTokens, goal); err != nil {
		fmt.Fprintf(os.Stderr, "nanoagent: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, prompt, provider, modelName string, steps int, debug, trace bool, dbURL string, maxTokens int, goal string) error {
	shutdown, err := otel.Init(ctx, otel.Config{ServiceVersion: version, UseStdout: trace})
	if err != nil {
		return err
	}
	defer func() { _ = shutdown(ctx) }()

	reg := agent.NewRegistry[agent.MapMemory]()
	if err := reg.Register(tools.HTTPGet[agent.MapMemory]()); err != nil {
		return err
	}
	if err := reg.Register(tools.MemorySet()); err != nil {
		return err
	}

	m, err := model.New(ctx, provider, model.Config{
		Model:     modelName,
		Tools:     reg,
		MaxTokens: maxTokens,
	})
	if err != nil {
		return err
	}
	defer m.Stop()

	actx := &agent.Context[agent.MapMemory]{
		Tools:    reg,
		GetInput: readLine,
	}
	if goal != "" {
		actx.IsFinal = func(s agent.State[agent.MapMemory]) bool {
			last, ok := s.LastMessage()
			return ok && strings.Contains(last.Content, goal)
		}
	}

	opts := agent.RunOptions[agent.MapMemory]{MaxSteps: agent.Steps(steps), Debug: debug}
	if debug {
		opts.Logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	st := agent.NewState(m,
		[]agent.Message{{Role: agent.RoleUser, Content: prompt}},
		agent.MapMemory{})

	final, err := agent.Loop(ctx, actx, st, opts)
	if err != nil {
		return err
	}

	if last, ok := final.LastMessage(); ok {
		fmt.Println(last.Content)
	}
	if final.Halted != nil {
		fmt.Fprintf(os.Stderr, "halt: %s\n", final.Halted.Kind)
	}

	if dbURL != "" {
		store, err := runstore.Open(ctx, dbURL)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		if err := runstore.SaveState(ctx, store, final.ID, final); err != nil {
			return err
		}
	}
	return nil
}

// readLine prompts on stderr and reads one line from stdin.
func readLine(_ context.Context, _ *agent.Context[agent.MapMemory], _ agent.State[agent.MapMemory]) (string, error) {
	fmt.Fprint(os.Stderr, "> ")
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func getEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
