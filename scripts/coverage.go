// Script to survey which years the imagery service can serve for each region,
// at both resolution tiers.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rkm/terratales/internal/imagery"
	"github.com/rkm/terratales/internal/region"
	"github.com/rkm/terratales/internal/scale"
)

// outcome of one probe
type outcome int

const (
	served outcome = iota
	apology
	failed
)

func main() {
	backendURL := os.Getenv("BACKEND_URL")
	if backendURL == "" {
		backendURL = imagery.DefaultBaseURL
	}

	client := imagery.NewClient(backendURL, 120*time.Second)
	catalog := region.Default()
	tiers := []scale.Tier{scale.Coarse, scale.Fine}

	fmt.Printf("=== Imagery coverage: %s ===\n", client.BaseURL())
	fmt.Printf("Years: %d-%d, regions: %d\n\n", region.MinYear, region.MaxYear, catalog.Count())

	var (
		mu      sync.Mutex
		results = make(map[imagery.FetchKey]outcome)
		reasons = make(map[string]int)
	)

	ctx := context.Background()
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)

	for _, r := range catalog.All() {
		for y := region.MinYear; y <= region.MaxYear; y++ {
			for _, tier := range tiers {
				key := imagery.FetchKey{Region: r.ID, Year: y, Index: r.Index, Tier: tier}
				g.Go(func() error {
					_, err := client.GetImage(ctx, key)

					mu.Lock()
					defer mu.Unlock()
					switch {
					case err == nil:
						results[key] = served
					case imagery.IsServiceError(err):
						results[key] = apology
						reasons[imagery.Explanation(err)]++
					case errors.Is(err, context.Canceled):
						return err
					default:
						results[key] = failed
						fmt.Fprintf(os.Stderr, "%s: %v\n", key, err)
					}
					return nil
				})
			}
		}
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintf(os.Stderr, "survey aborted: %v\n", err)
		os.Exit(1)
	}

	for _, r := range catalog.All() {
		fmt.Printf("%-8s %s\n", r.ID, r.FullName)
		for _, tier := range tiers {
			var line []byte
			counts := [3]int{}
			for y := region.MinYear; y <= region.MaxYear; y++ {
				o := results[imagery.FetchKey{Region: r.ID, Year: y, Index: r.Index, Tier: tier}]
				counts[o]++
				line = append(line, ".?x"[o])
			}
			fmt.Printf("  %-6s %s  served=%d apology=%d failed=%d\n", tier, line, counts[served], counts[apology], counts[failed])
		}
	}

	if len(reasons) > 0 {
		fmt.Println("\n=== Apologies ===")
		msgs := make([]string, 0, len(reasons))
		for m := range reasons {
			msgs = append(msgs, m)
		}
		sort.Strings(msgs)
		for _, m := range msgs {
			fmt.Printf("%4d  %s\n", reasons[m], m)
		}
	}
}
