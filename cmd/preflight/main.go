// cmd/preflight/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/multierr"

	"github.com/hamed0406/servicemonitor/internal/config"
	"github.com/hamed0406/servicemonitor/internal/domain"
	"github.com/hamed0406/servicemonitor/internal/notify"
	"github.com/hamed0406/servicemonitor/internal/probe"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML configuration file")
	runProbes := flag.Bool("run", false, "run every probe once and print the result")
	flag.Parse()

	fail := func(msg string) { fmt.Fprintln(os.Stderr, "✖", msg) }
	warn := func(msg string) { fmt.Fprintln(os.Stderr, "⚠", msg) }
	ok := func(msg string) { fmt.Println("✔", msg) }

	path, err := config.Resolve(*configPath)
	if err != nil {
		fail("No configuration file provided, aborting")
		os.Exit(1)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		fail(err.Error())
		os.Exit(1)
	}
	cfg, err := config.Parse(content)
	if err != nil {
		for _, e := range multierr.Errors(err) {
			fail(e.Error())
		}
		os.Exit(1)
	}
	ok("config " + path)

	for _, s := range cfg.Services {
		target := s.Host
		if s.Kind == domain.KindHTTP {
			target = s.URL
		}
		ok(fmt.Sprintf("%s/%s -> %s", s.Kind, s.Service, target))
	}

	if _, err := notify.FromConfig(cfg.Notifications.Email, cfg.Notifications.Slack); err != nil {
		if !errors.Is(err, notify.ErrNoNotifier) {
			fail(err.Error())
			os.Exit(1)
		}
		warn("no notifier configured; debug mode only prints messages")
	} else if cfg.Notifications.Email != nil {
		ok("email via " + cfg.Notifications.Email.Relay)
	} else {
		ok("slack webhook present")
	}

	if cfg.Common.Debug {
		warn("debug is on: nothing will be sent")
	}
	if cfg.Status.Addr == "" {
		warn("status.addr empty; status API disabled")
	} else {
		ok("status API on " + cfg.Status.Addr)
		if len(cfg.Status.APIKeys) == 0 {
			warn("status.api_keys empty; the API is open to anyone who can reach it")
		}
	}
	if cfg.Journal.DatabaseURL == "" {
		warn("journal.database_url empty; notification journal is in-memory only")
	} else {
		ok("DATABASE_URL present")
	}

	if *runProbes {
		for _, s := range cfg.Services {
			p, err := probe.New(s)
			if err != nil {
				fail(err.Error())
				continue
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Common.Timeout()+time.Second)
			m := p.Run(ctx)
			cancel()
			mark := ok
			if m.Severity != domain.Info {
				mark = warn
			}
			mark(m.String())
		}
	}

	ok("preflight passed")
}
