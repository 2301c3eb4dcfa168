package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/protectql/depthgate/internal/eventbus"
	"github.com/protectql/depthgate/internal/language"
	"github.com/protectql/depthgate/internal/metrics"
	"github.com/protectql/depthgate/internal/otel"
	"github.com/protectql/depthgate/internal/server"
	"github.com/protectql/depthgate/internal/validation"
)

const rootUsage = `depthgate — GraphQL depth-limit gateway & query linter

USAGE:
  depthgate <command> [flags]

COMMANDS:
  serve            Run the validating HTTP gateway in front of a GraphQL upstream
  check            Validate GraphQL query files against the depth limit
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -upstream.url <url>            Upstream GraphQL endpoint (required)
  -upstream.timeout <duration>   Upstream call timeout, e.g. 15s (default: 15s)
  -limit.max-depth <n>           Maximum operation depth, inclusive (default: 10)
  -limit.ignore-exact <name>     Exempt a field name from depth accounting. Repeatable
  -limit.ignore-pattern <re>     Exempt field names matching a regular expression
  -validation.known-fragments    Also report fragment spreads with no definition
  -server.addr <addr>            HTTP listen address (default: :8080)
  -server.pretty                 Pretty-print JSON responses
  -server.timeout <duration>     Per-request timeout, e.g. 10s (default: 10s)
  -server.max-body <bytes>       Max request body size. 0 means unlimited
  -server.cors-origin <origin>   Allowed CORS origin. Repeatable
  -server.forward-header <name>  Client header passed through upstream. Repeatable
  -metrics.addr <addr>           Prometheus scrape address; empty disables metrics
  -otel.endpoint <addr>          OTLP collector endpoint
  -otel.service <name>           OpenTelemetry service name (default: depthgate)
`

const checkUsage = `check FLAGS:
  -limit.max-depth <n>           Maximum operation depth, inclusive (default: 10)
  -limit.ignore-exact <name>     Exempt a field name from depth accounting. Repeatable
  -limit.ignore-pattern <re>     Exempt field names matching a regular expression
  -validation.known-fragments    Also report fragment spreads with no definition

  Positional arguments name query files to validate; with none, the query is
  read from stdin. Exits non-zero when any document fails.
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("depthgate", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs)
	case "check":
		return cmdCheck(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Print(serveUsage)
	case "check":
		fmt.Print(checkUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// limitFlags holds the validation configuration shared by serve and check.
type limitFlags struct {
	maxDepth       int
	ignoreExact    stringListFlag
	ignorePattern  string
	knownFragments bool
}

func (lf *limitFlags) register(fs *flag.FlagSet) {
	fs.IntVar(&lf.maxDepth, "limit.max-depth", 10, "Maximum operation depth")
	fs.Var(&lf.ignoreExact, "limit.ignore-exact", "Exempt a field name from depth accounting")
	fs.StringVar(&lf.ignorePattern, "limit.ignore-pattern", "", "Exempt field names matching a regular expression")
	fs.BoolVar(&lf.knownFragments, "validation.known-fragments", false, "Also report fragment spreads with no definition")
}

func (lf *limitFlags) rules() ([]validation.Rule, error) {
	if lf.maxDepth < 0 {
		return nil, fmt.Errorf("-limit.max-depth must be >= 0")
	}
	var ignore []validation.IgnoreRule
	for _, name := range lf.ignoreExact {
		ignore = append(ignore, validation.IgnoreExact(name))
	}
	if lf.ignorePattern != "" {
		ignore = append(ignore, validation.IgnorePattern(lf.ignorePattern))
	}
	depth := validation.MaxDepth{Limit: lf.maxDepth}
	switch len(ignore) {
	case 0:
	case 1:
		depth.Ignore = ignore[0]
	default:
		depth.Ignore = validation.IgnoreAny(ignore...)
	}
	rules := []validation.Rule{depth}
	if lf.knownFragments {
		rules = append(rules, validation.KnownFragments{})
	}
	return rules, nil
}

func cmdServe(args []string) error {
	upstream := ""
	forwardTimeout := 15 * time.Second
	addr := ":8080"
	pretty := false
	timeout := 10 * time.Second
	var maxBody int64
	var corsOrigins stringListFlag
	var forwardHeaders stringListFlag
	metricsAddr := ""
	otelEndpoint := ""
	otelService := "depthgate"
	var lf limitFlags

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&upstream, "upstream.url", upstream, "Upstream GraphQL endpoint")
	fs.DurationVar(&forwardTimeout, "upstream.timeout", forwardTimeout, "Upstream call timeout")
	lf.register(fs)
	fs.StringVar(&addr, "server.addr", addr, "HTTP listen address")
	fs.BoolVar(&pretty, "server.pretty", pretty, "Pretty-print JSON responses")
	fs.DurationVar(&timeout, "server.timeout", timeout, "Per-request timeout")
	fs.Int64Var(&maxBody, "server.max-body", maxBody, "Max request body size")
	fs.Var(&corsOrigins, "server.cors-origin", "Allowed CORS origin")
	fs.Var(&forwardHeaders, "server.forward-header", "Client header passed through upstream")
	fs.StringVar(&metricsAddr, "metrics.addr", metricsAddr, "Prometheus scrape address")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}
	if upstream == "" {
		fmt.Fprint(os.Stderr, serveUsage)
		return fmt.Errorf("-upstream.url is required")
	}
	rules, err := lf.rules()
	if err != nil {
		fmt.Fprint(os.Stderr, serveUsage)
		return err
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	if metricsAddr != "" {
		metrics.Register()
		mmux := http.NewServeMux()
		mmux.Handle("/metrics", metrics.Handler())
		go func() {
			log.Printf("metrics listening on %s", metricsAddr)
			if err := http.ListenAndServe(metricsAddr, mmux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	sopts := []server.Option{
		server.WithTimeout(timeout),
		server.WithForwardTimeout(forwardTimeout),
	}
	if pretty {
		sopts = append(sopts, server.WithPretty())
	}
	if maxBody > 0 {
		sopts = append(sopts, server.WithMaxBodyBytes(maxBody))
	}
	if len(corsOrigins) > 0 {
		sopts = append(sopts, server.WithCORS(corsOrigins...))
	}
	if len(forwardHeaders) > 0 {
		sopts = append(sopts, server.WithForwardHeaders(forwardHeaders...))
	}
	h, err := server.New(upstream, rules, sopts...)
	if err != nil {
		return fmt.Errorf("server init: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/graphql", h)

	log.Printf("depthgate listening on %s (upstream %s, max depth %d)", addr, upstream, lf.maxDepth)
	return http.ListenAndServe(addr, mux)
}

func cmdCheck(args []string) error {
	var lf limitFlags
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	lf.register(fs)
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}
	rules, err := lf.rules()
	if err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}

	files := fs.Args()
	if len(files) == 0 {
		source, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		if !checkOne("stdin", string(source), rules) {
			return fmt.Errorf("1 of 1 documents failed validation")
		}
		return nil
	}

	failed := 0
	for _, file := range files {
		source, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed++
			continue
		}
		if !checkOne(file, string(source), rules) {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed validation", failed, len(files))
	}
	return nil
}

// checkOne validates one document and reports findings to stderr. It
// returns false when the document fails to parse or has violations.
func checkOne(name, source string, rules []validation.Rule) bool {
	doc, err := language.ParseQueryFile(name, source)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
		return false
	}
	violations := validation.Run(doc, rules...)
	if len(violations) == 0 {
		return true
	}
	fmt.Fprint(os.Stderr, validation.ValidationError(violations).Error())
	return false
}
