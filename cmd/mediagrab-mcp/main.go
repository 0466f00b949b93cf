package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/use-agent/mediagrab/models"
)

func main() {
	apiURL := os.Getenv("MEDIAGRAB_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	// Optional: the server may run without auth.
	apiKey := os.Getenv("MEDIAGRAB_API_KEY")

	s := server.NewMCPServer(
		"mediagrab",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	findVideosTool := mcp.NewTool("find_videos",
		mcp.WithDescription("Find the product videos on a marketplace product page. Returns the direct video URLs in page order."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The product page URL"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Fetch timeout in seconds (default: 30, max: 120)"),
		),
	)
	s.AddTool(findVideosTool, handleFindVideos(apiURL, apiKey))

	listResourcesTool := mcp.NewTool("list_resources",
		mcp.WithDescription("List the media and file links on a page, grouped into videos, images, audios, files and folders."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The page URL"),
		),
		mcp.WithString("kind",
			mcp.Description("Only list one bucket"),
			mcp.Enum("videos", "images", "audios", "files", "folders"),
		),
	)
	s.AddTool(listResourcesTool, handleListResources(apiURL, apiKey))

	diagnoseTool := mcp.NewTool("diagnose_page",
		mcp.WithDescription("Fetch a page once and report its status, headers, anti-bot signals and a short text preview."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The page URL"),
		),
	)
	s.AddTool(diagnoseTool, handleDiagnose(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

// apiPost sends a POST request to the mediagrab API and returns the response body.
func apiPost(ctx context.Context, client *http.Client, apiURL, apiKey, path string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	return io.ReadAll(resp.Body)
}

func errorText(e *models.ErrorDetail) string {
	if e == nil {
		return "unknown error"
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func handleFindVideos(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		payload := map[string]any{"url": url}
		if timeout := request.GetInt("timeout", 0); timeout > 0 {
			payload["timeout"] = timeout
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/scrape", payload)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ScrapeResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText(resp.Error)), nil
		}

		var sb strings.Builder
		if resp.PageTitle != "" {
			fmt.Fprintf(&sb, "# %s\n\n", resp.PageTitle)
		}
		if resp.Blocked {
			fmt.Fprintf(&sb, "The page was blocked by anti-bot protection (signals: %s).\n", strings.Join(resp.Signals, ", "))
		} else {
			fmt.Fprintf(&sb, "Found %d video(s)", resp.Count)
			if resp.Source != "" {
				fmt.Fprintf(&sb, " via %s", resp.Source)
			}
			sb.WriteString(".\n")
		}
		for i, v := range resp.Videos {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, v)
		}
		if len(resp.Tips) > 0 {
			sb.WriteString("\nTips:\n")
			for _, tip := range resp.Tips {
				fmt.Fprintf(&sb, "- %s\n", tip)
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleListResources(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}
		kind := request.GetString("kind", "")

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/extract", map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.ExtractResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText(resp.Error)), nil
		}

		buckets := []struct {
			name    string
			entries []models.ResourceEntry
		}{
			{"videos", resp.Resources.Videos},
			{"images", resp.Resources.Images},
			{"audios", resp.Resources.Audios},
			{"files", resp.Resources.Files},
			{"folders", resp.Resources.Folders},
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "%d resource(s) on %s\n", resp.Total, resp.FinalURL)
		if resp.Blocked {
			sb.WriteString("Warning: the page looks like an anti-bot challenge page.\n")
		}
		for _, b := range buckets {
			if kind != "" && kind != b.name {
				continue
			}
			fmt.Fprintf(&sb, "\n## %s (%d)\n", b.name, len(b.entries))
			for _, e := range b.entries {
				fmt.Fprintf(&sb, "- %s  %s\n", e.Name, e.URL)
			}
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func handleDiagnose(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 150 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		respBody, err := apiPost(ctx, client, apiURL, apiKey, "/api/v1/diag", map[string]string{"url": url})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		var resp models.DiagResponse
		if err := json.Unmarshal(respBody, &resp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}
		if !resp.Success {
			return mcp.NewToolResultError(errorText(resp.Error)), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "Status: %d\nFinal URL: %s\nContent-Type: %s\nServer: %s\nHTML length: %d\n",
			resp.StatusCode, resp.FinalURL, resp.ContentType, resp.Server, resp.HTMLLength)
		fmt.Fprintf(&sb, "Video tokens: videoUrl=%d escaped=%d mp4=%d escapedMp4=%d\n",
			resp.VideoTokens.VideoURL, resp.VideoTokens.EscapedVideoURL, resp.VideoTokens.DirectMP4, resp.VideoTokens.EscapedMP4)
		if len(resp.Signals) > 0 {
			fmt.Fprintf(&sb, "Anti-bot signals: %s (blocked: %t)\n", strings.Join(resp.Signals, ", "), resp.Blocked)
		}
		if resp.Title != "" {
			fmt.Fprintf(&sb, "\n# %s\n", resp.Title)
		}
		if resp.Preview != "" {
			fmt.Fprintf(&sb, "\n%s\n", resp.Preview)
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}
