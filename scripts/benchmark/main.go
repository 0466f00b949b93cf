package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/use-agent/mediagrab/models"
)

// CLI flags
var (
	apiURL   = flag.String("api-url", "http://localhost:8080", "mediagrab API base URL")
	apiKey   = flag.String("api-key", "", "API key for authenticated requests")
	urlsFile = flag.String("urls", "", "file with one product URL per line")
	runs     = flag.Int("runs", 3, "Number of runs per URL for averaging")
	output   = flag.String("output", "benchmark-results.json", "JSON output file path")
)

// defaultURLs are used when -urls is not given.
var defaultURLs = []string{
	"https://www.alibaba.com/product-detail/Polarized-Sunglasses_1600000000000.html",
	"https://example.com",
}

// --- Benchmark result types ---

type runResult struct {
	Run        int    `json:"run"`
	TotalMs    int64  `json:"total_ms"`
	FetchMs    int64  `json:"fetch_ms"`
	ExtractMs  int64  `json:"extract_ms"`
	Videos     int    `json:"videos"`
	Source     string `json:"source,omitempty"`
	Blocked    bool   `json:"blocked"`
	StatusCode int    `json:"status_code"`
	EngineUsed string `json:"engine_used,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

type urlAverages struct {
	TotalMs     float64 `json:"total_ms"`
	FetchMs     float64 `json:"fetch_ms"`
	ExtractMs   float64 `json:"extract_ms"`
	Videos      float64 `json:"videos"`
	BlockedRate float64 `json:"blocked_rate"`
}

type urlResult struct {
	URL      string       `json:"url"`
	Runs     []runResult  `json:"runs"`
	Averages *urlAverages `json:"averages,omitempty"`
}

type benchmarkReport struct {
	Timestamp  string      `json:"timestamp"`
	APIURL     string      `json:"api_url"`
	RunsPerURL int         `json:"runs_per_url"`
	Results    []urlResult `json:"results"`
}

func main() {
	flag.Parse()

	urls := defaultURLs
	if *urlsFile != "" {
		var err error
		if urls, err = readURLs(*urlsFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Println("=== mediagrab Benchmark ===")
	fmt.Printf("API URL:   %s\n", *apiURL)
	fmt.Printf("URLs:      %d\n", len(urls))
	fmt.Printf("Runs/URL:  %d\n", *runs)
	fmt.Println()

	if err := checkAPI(*apiURL); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot reach API at %s: %v\n", *apiURL, err)
		os.Exit(1)
	}

	report := benchmarkReport{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		APIURL:     *apiURL,
		RunsPerURL: *runs,
	}

	for _, u := range urls {
		fmt.Printf("Benchmarking %s ...\n", u)
		ur := urlResult{URL: u}

		for i := 1; i <= *runs; i++ {
			fmt.Printf("  Run %d/%d ... ", i, *runs)
			rr := benchmarkURL(u, i)
			switch {
			case !rr.Success:
				fmt.Printf("FAILED: %s\n", rr.Error)
			case rr.Blocked:
				fmt.Printf("BLOCKED  %dms\n", rr.TotalMs)
			default:
				fmt.Printf("OK  %dms  %d video(s)\n", rr.TotalMs, rr.Videos)
			}
			ur.Runs = append(ur.Runs, rr)
		}

		ur.Averages = computeAverages(ur.Runs)
		report.Results = append(report.Results, ur)
		fmt.Println()
	}

	printTable(report.Results)

	if err := writeJSON(*output, report); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("\nDetailed results written to %s\n", *output)
}

func readURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" && !strings.HasPrefix(line, "#") {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func checkAPI(baseURL string) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(baseURL + "/api/v1/health")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func benchmarkURL(url string, run int) runResult {
	rr := runResult{Run: run}

	// max_age 0 keeps the cache out of the measurement.
	bodyBytes, err := json.Marshal(models.ScrapeRequest{URL: url, Timeout: 60})
	if err != nil {
		rr.Error = fmt.Sprintf("marshal error: %v", err)
		return rr
	}

	req, err := http.NewRequest(http.MethodPost, *apiURL+"/api/v1/scrape", bytes.NewReader(bodyBytes))
	if err != nil {
		rr.Error = fmt.Sprintf("request error: %v", err)
		return rr
	}
	req.Header.Set("Content-Type", "application/json")
	if *apiKey != "" {
		req.Header.Set("X-API-Key", *apiKey)
	}

	client := &http.Client{Timeout: 90 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		rr.Error = fmt.Sprintf("request failed: %v", err)
		return rr
	}
	defer resp.Body.Close()

	var sr models.ScrapeResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		rr.Error = fmt.Sprintf("decode error: %v", err)
		return rr
	}

	rr.Success = sr.Success
	rr.StatusCode = sr.StatusCode
	rr.TotalMs = sr.Timing.TotalMs
	rr.FetchMs = sr.Timing.FetchMs
	rr.ExtractMs = sr.Timing.ExtractMs
	rr.Videos = sr.Count
	rr.Source = sr.Source
	rr.Blocked = sr.Blocked
	rr.EngineUsed = sr.EngineUsed
	if sr.Error != nil && !sr.Success {
		rr.Error = sr.Error.Message
	}
	return rr
}

func computeAverages(runs []runResult) *urlAverages {
	var successCount, blocked int
	var avg urlAverages

	for _, r := range runs {
		if !r.Success {
			continue
		}
		successCount++
		if r.Blocked {
			blocked++
		}
		avg.TotalMs += float64(r.TotalMs)
		avg.FetchMs += float64(r.FetchMs)
		avg.ExtractMs += float64(r.ExtractMs)
		avg.Videos += float64(r.Videos)
	}

	if successCount == 0 {
		return nil
	}

	n := float64(successCount)
	avg.TotalMs /= n
	avg.FetchMs /= n
	avg.ExtractMs /= n
	avg.Videos /= n
	avg.BlockedRate = float64(blocked) / n
	return &avg
}

func printTable(results []urlResult) {
	fmt.Println(strings.Repeat("─", 85))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "URL\tAvg Latency\tFetch\tVideos\tBlocked\n")
	fmt.Fprintf(w, "───\t───────────\t─────\t──────\t───────\n")

	for _, r := range results {
		if r.Averages == nil {
			fmt.Fprintf(w, "%s\tFAILED\t-\t-\t-\n", truncateURL(r.URL, 40))
			continue
		}
		fmt.Fprintf(w, "%s\t%sms\t%sms\t%.1f\t%.0f%%\n",
			truncateURL(r.URL, 40),
			humanize.Comma(int64(r.Averages.TotalMs)),
			humanize.Comma(int64(r.Averages.FetchMs)),
			r.Averages.Videos,
			r.Averages.BlockedRate*100,
		)
	}

	w.Flush()
	fmt.Println(strings.Repeat("─", 85))
}

func truncateURL(u string, max int) string {
	if len(u) <= max {
		return u
	}
	return u[:max-3] + "..."
}

func writeJSON(path string, report benchmarkReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
