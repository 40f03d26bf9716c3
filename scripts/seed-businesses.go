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
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: go run scripts/seed-businesses.go <businesses-file.json>")
		fmt.Println("Example: ADMIN_TOKEN=secret go run scripts/seed-businesses.go testdata/sample-businesses.json")
		os.Exit(1)
	}

	apiURL := os.Getenv("API_URL")
	if apiURL == "" {
		apiURL = "http://localhost:8080"
	}

	adminToken := strings.TrimSpace(os.Getenv("ADMIN_TOKEN"))
	if adminToken == "" {
		fmt.Println("❌ ADMIN_TOKEN is required (the admin API rejects unauthenticated writes)")
		os.Exit(1)
	}

	seedFile := os.Args[1]

	fmt.Printf("🌱 Seeding Businesses\n")
	fmt.Printf("============================\n")
	fmt.Printf("API URL: %s\n", apiURL)
	fmt.Printf("Seed file: %s\n\n", seedFile)

	data, err := os.ReadFile(seedFile)
	if err != nil {
		fmt.Printf("❌ Error reading file: %v\n", err)
		os.Exit(1)
	}

	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		fmt.Printf("❌ Error parsing JSON: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Businesses to upsert: %d\n\n", len(records))

	ctx := context.Background()
	client := &http.Client{Timeout: 30 * time.Second}

	var stored, failed int
	for i, record := range records {
		slug, _ := record["slug"].(string)
		if slug == "" {
			fmt.Printf("❌ Record %d has no slug, skipping\n", i+1)
			failed++
			continue
		}

		fmt.Printf("📦 %d/%d: %s\n", i+1, len(records), slug)

		// The slug travels in the URL, not the body.
		delete(record, "slug")
		payload, err := json.Marshal(record)
		if err != nil {
			fmt.Printf("   ❌ Error marshaling record: %v\n", err)
			failed++
			continue
		}

		url := fmt.Sprintf("%s/admin/businesses/%s", apiURL, slug)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
		if err != nil {
			fmt.Printf("   ❌ Error creating request: %v\n", err)
			failed++
			continue
		}

		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-Admin-Token", adminToken)

		resp, err := client.Do(httpReq)
		if err != nil {
			fmt.Printf("   ❌ Error sending request: %v\n", err)
			failed++
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			fmt.Printf("   ✅ Stored\n")
			stored++
		} else {
			fmt.Printf("   ❌ Failed (status %d): %s\n", resp.StatusCode, string(body))
			failed++
		}

		// Small delay between records
		if i < len(records)-1 {
			time.Sleep(200 * time.Millisecond)
		}
	}

	fmt.Printf("\n✅ Seeding complete: %d stored, %d failed\n", stored, failed)
	fmt.Printf("\n📝 Next steps:\n")
	fmt.Printf("  1. Check a public record: curl %s/businesses/<slug>\n", apiURL)
	fmt.Printf("  2. Embed the widget with <script src=\"%s/widget.js\" data-business=\"<slug>\"></script>\n", apiURL)
	fmt.Printf("  3. Send \"je veux réserver\" and walk through the booking flow\n")
}
