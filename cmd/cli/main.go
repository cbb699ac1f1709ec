package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hamed0406/servicemonitor/internal/domain"
	"github.com/hamed0406/servicemonitor/internal/repo"
)

func main() {
	journal := flag.Bool("journal", false, "show recent notifications instead of probe status")
	limit := flag.Int("limit", 20, "number of journal entries")
	flag.Parse()

	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	api = strings.TrimRight(api, "/")
	c := &client{base: api, key: os.Getenv("API_KEY"), http: &http.Client{Timeout: 10 * time.Second}}

	var err error
	if *journal {
		err = c.printJournal(*limit)
	} else {
		err = c.printProbes()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error contacting API:", err)
		os.Exit(1)
	}
}

type client struct {
	base string
	key  string
	http *http.Client
}

func (c *client) get(path string, v any) error {
	req, err := http.NewRequest(http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	if c.key != "" {
		req.Header.Set("Authorization", "Bearer "+c.key)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("API returned status: %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *client) printProbes() error {
	var body struct {
		Cycles uint64               `json:"cycles"`
		Probes []domain.ProbeStatus `json:"probes"`
	}
	if err := c.get("/api/probes", &body); err != nil {
		return err
	}
	fmt.Printf("cycles completed: %d\n\n", body.Cycles)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSERVICE\tPROBE\tLAST RESULT\tNOTIFIED\tREPEAT")
	for _, p := range body.Probes {
		last, notified := "-", "-"
		if p.LastResult != nil {
			last = p.LastResult.Severity.String() + ": " + p.LastResult.Header
		}
		if p.LastMessage != nil {
			notified = p.LastMessage.Severity.String() + ": " + p.LastMessage.Header
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%d\n", p.Index, p.Service, p.Probe, last, notified, p.RepeatCounter)
	}
	return tw.Flush()
}

func (c *client) printJournal(limit int) error {
	var entries []repo.Entry
	if err := c.get(fmt.Sprintf("/api/journal?limit=%d", limit), &entries); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tSERVICE\tDECISION\tOUTCOME\tSUBJECT")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.RecordedAt.Local().Format(time.DateTime), e.Message.Service, e.Decision, e.Outcome, e.Message.Subject())
	}
	return tw.Flush()
}
