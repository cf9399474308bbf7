// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/graftlabs/graft/internal/issue"
	"github.com/graftlabs/graft/internal/run"
	"github.com/graftlabs/graft/internal/watch"
	"github.com/graftlabs/graft/internal/wire"
	"github.com/graftlabs/graft/pkg/entity"
	"github.com/graftlabs/graft/pkg/transform"
)

// newRunCommand creates the `graft run` command.
func newRunCommand() *cobra.Command {
	var (
		fieldFlags    []string
		inputFile     string
		overrideFlags []string
		timeout       time.Duration
		jsonOut       bool
		watchMode     bool
	)

	runCmd := &cobra.Command{
		Use:   "run <entity>[@version] <label> [value]",
		Short: "Run a transform and stream its results",
		Long: TitleStyle.Render("graft run") + SubtitleStyle.Render(" - Run a transform against an entity") + `

Resolves the entity type (bare references pick the highest registered
version), dispatches the transform bound to the label, and streams its
results as they are emitted. The optional positional value becomes the
input entity's label, typically its primary value.

Results go to stdout and progress to stderr. On a terminal the output
is pretty-printed; piped or with --json it uses the same framed wire
format the worker channel speaks, so scripts can parse it.

With --watch the transform re-runs whenever a plugin descriptor file
changes, rebuilding the registry each pass. Use it while authoring a
descriptor to see the effect of every edit.

` + SubtitleStyle.Render("Examples:") + `
  graft run domain dns_lookup example.com
  graft run domain@1.2.0 dns_lookup example.com --timeout 2m
  graft run ip_address whois --field ip=203.0.113.7 --set api_key=...
  graft run domain dns_lookup example.com --json | jq .
  graft run domain to_text example.com --watch`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context())
			if err != nil {
				return err
			}

			ref, err := entity.ParseRef(args[0])
			if err != nil {
				return err
			}
			input, err := buildInput(ref, args, fieldFlags, inputFile)
			if err != nil {
				return err
			}
			overrides, err := parsePairs(overrideFlags)
			if err != nil {
				return err
			}

			request := run.Request{
				Entity:    ref,
				Label:     args[1],
				Input:     input,
				Overrides: overrides,
				Timeout:   timeout,
			}

			if watchMode {
				if jsonOut {
					return fmt.Errorf("--watch re-renders interactively and cannot combine with --json")
				}
				return watchAndRun(cmd.Context(), app, func(ctx context.Context, a *App) error {
					return renderStream(a.Runner.Run(ctx, request), time.Now())
				})
			}

			start := time.Now()
			stream := app.Runner.Run(cmd.Context(), request)

			if jsonOut || !term.IsTerminal(int(os.Stdout.Fd())) {
				return writeStream(stream)
			}
			return renderStream(stream, start)
		},
	}

	runCmd.Flags().StringArrayVar(&fieldFlags, "field", nil, "input field as name=value (repeatable)")
	runCmd.Flags().StringVar(&inputFile, "input", "", "read the input payload from a JSON file")
	runCmd.Flags().StringArrayVar(&overrideFlags, "set", nil, "runtime setting override as name=value (repeatable)")
	runCmd.Flags().DurationVar(&timeout, "timeout", 0, "invocation deadline (0 uses default_timeout)")
	runCmd.Flags().BoolVar(&jsonOut, "json", false, "emit the wire format even on a terminal")
	runCmd.Flags().BoolVar(&watchMode, "watch", false, "re-run when plugin descriptors change")

	return runCmd
}

// watchAndRun executes one pass immediately, then re-executes whenever a
// descriptor under the configured plugin directories changes. Each pass gets
// an app built from scratch so the registry reflects the edited descriptors.
// A failing pass stays on screen and the watch continues.
func watchAndRun(ctx context.Context, app *App, pass func(context.Context, *App) error) error {
	_ = pass(ctx, app)

	dirs, err := app.Config.PluginPaths()
	if err != nil {
		return err
	}
	w, err := watch.New(watch.Config{
		Dirs:   dirs,
		Logger: app.Logger,
		OnChange: func(ctx context.Context, changed []string) error {
			fmt.Fprintln(os.Stderr, SubtitleStyle.Render("↻ descriptors changed, re-running"))
			fresh, err := newApp(ctx)
			if err != nil {
				return err
			}
			_ = pass(ctx, fresh)
			return nil
		},
	})
	if err != nil {
		return issue.NewErrorContext().
			WithOperation("watch plugin directories").
			WithSuggestion("Run 'graft config init' to create the default plugin directory").
			Wrap(err).
			BuildError()
	}

	fmt.Fprintln(os.Stderr, SubtitleStyle.Render("watching plugin directories, press Ctrl+C to stop"))
	return w.Run(ctx)
}

// buildInput assembles the input payload from the --input file, --field
// pairs, and the optional positional value, later sources winning. The
// payload always carries the entity type key.
func buildInput(ref entity.Ref, args, fields []string, inputFile string) (entity.Payload, error) {
	input := entity.Payload{}

	if inputFile != "" {
		data, err := os.ReadFile(inputFile)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("read input payload").
				WithResource(inputFile).
				WithSuggestion("Pass --field name=value to build the payload inline").
				Wrap(err).
				BuildError()
		}
		if err := json.Unmarshal(data, &input); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("parse input payload").
				WithResource(inputFile).
				WithSuggestion("The input file must hold a single JSON object").
				Wrap(err).
				BuildError()
		}
	}

	pairs, err := parsePairs(fields)
	if err != nil {
		return nil, err
	}
	for name, value := range pairs {
		input[name] = value
	}

	if len(args) == 3 {
		input[entity.KeyLabel] = args[2]
	}
	if _, ok := input[entity.KeyType]; !ok {
		input[entity.KeyType] = ref.ID.String()
	}
	return input, nil
}

// parsePairs splits repeated name=value flags into a map. Values keep their
// string form; the settings resolver coerces them to the declared kinds.
func parsePairs(pairs []string) (map[string]any, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(pairs))
	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("flag value %q is not in name=value form", pair)
		}
		out[name] = value
	}
	return out, nil
}

// writeStream drains one invocation in the wire format: progress lines to
// stderr as they happen, then a single result or error block on stdout.
func writeStream(s *run.Stream) error {
	w := wire.NewWriter(os.Stdout).WithProgressWriter(os.Stderr)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for ev := range s.Progress() {
			_ = w.WriteProgress(ev)
		}
	}()
	var notices []transform.Notice
	go func() {
		defer wg.Done()
		for n := range s.Notices() {
			notices = append(notices, n)
		}
	}()

	var items []transform.Item
	for item := range s.Items() {
		items = append(items, item)
	}
	wg.Wait()

	if err := s.Wait(); err != nil {
		if werr := w.WriteError(err); werr != nil {
			return werr
		}
		return exitError(err)
	}
	return w.WriteResult(items, notices)
}

// renderStream drains one invocation for a terminal: items pretty-printed to
// stdout as they arrive, progress and notices to stderr.
func renderStream(s *run.Stream, start time.Time) error {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for ev := range s.Progress() {
			fmt.Fprintln(os.Stderr, VerboseStyle.Render(progressLine(ev)))
		}
	}()
	go func() {
		defer wg.Done()
		for n := range s.Notices() {
			fmt.Fprintln(os.Stderr, noticeLine(n))
		}
	}()

	count := 0
	for item := range s.Items() {
		if item.Kind == transform.ItemNone {
			continue
		}
		printItem(item)
		count++
	}
	wg.Wait()

	if err := s.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ ")+formatErrorForDisplay(err, verbose))
		renderIssueHint(err)
		return exitError(err)
	}

	word := "items"
	if count == 1 {
		word = "item"
	}
	fmt.Println(SubtitleStyle.Render(fmt.Sprintf("✓ %d %s in %s", count, word, time.Since(start).Round(time.Millisecond))))
	return nil
}

// printItem pretty-prints one streamed item.
func printItem(item transform.Item) {
	switch item.Kind {
	case transform.ItemEntity:
		printEntityLine(item.Entity, "")
	case transform.ItemSubgraph:
		sg := item.Subgraph
		fmt.Printf("%s %s\n", TitleStyle.Render("subgraph"),
			SubtitleStyle.Render(fmt.Sprintf("(%d nodes, %d edges)", len(sg.Nodes), len(sg.Edges))))
		for i := range sg.Nodes {
			n := &sg.Nodes[i]
			fmt.Printf("  %s %s %s\n", SuccessStyle.Render("•"), CmdStyle.Render(string(n.Type)), n.Label)
		}
		for _, e := range sg.Edges {
			line := fmt.Sprintf("%d -> %d", e.From, e.To)
			if e.Label != "" {
				line += " (" + e.Label + ")"
			}
			fmt.Printf("    %s\n", SubtitleStyle.Render(line))
		}
	}
}

// printEntityLine prints one entity payload, with its non-reserved fields in
// verbose mode.
func printEntityLine(p entity.Payload, indent string) {
	label := p.Label()
	if label == "" {
		label = SubtitleStyle.Render("(unlabeled)")
	}
	fmt.Printf("%s%s %s %s\n", indent, SuccessStyle.Render("•"), CmdStyle.Render(string(p.TypeID())), label)

	if !verbose {
		return
	}
	names := make([]string, 0, len(p))
	for name := range p {
		if name == entity.KeyID || name == entity.KeyType || name == entity.KeyLabel {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("%s    %s: %v\n", indent, SubtitleStyle.Render(name), p[name])
	}
}

// progressLine formats one progress event for stderr.
func progressLine(ev transform.ProgressEvent) string {
	var b strings.Builder
	if ev.Stage != "" {
		fmt.Fprintf(&b, "[%s] ", ev.Stage)
	}
	b.WriteString(ev.Message)
	if ev.Percent >= 0 {
		fmt.Fprintf(&b, " (%.0f%%)", ev.Percent)
	}
	return b.String()
}

// noticeLine formats one notice with a level-colored prefix.
func noticeLine(n transform.Notice) string {
	switch n.Level {
	case transform.NoticeWarning:
		return WarningStyle.Render("warning: ") + n.Message
	case transform.NoticeError:
		return ErrorStyle.Render("error: ") + n.Message
	default:
		return SubtitleStyle.Render("note: ") + n.Message
	}
}
