package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var (
		adminAddr string
		timeout   time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stats of a running relay",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			stats, err := fetchStats(ctx, adminAddr)
			if err != nil {
				return err
			}
			renderStats(os.Stdout, stats)
			return nil
		},
	}

	cmd.Flags().StringVar(&adminAddr, "admin", "localhost:9090", "Admin address of the relay (ADMIN_ADDR)")
	cmd.Flags().DurationVar(&timeout, "timeout", 3*time.Second, "Request timeout")
	return cmd
}

func fetchStats(ctx context.Context, adminAddr string) (relayStats, error) {
	var stats relayStats
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "http://"+adminAddr+"/stats", nil)
	if err != nil {
		return stats, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return stats, fmt.Errorf("relay unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return stats, fmt.Errorf("unexpected status %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return stats, fmt.Errorf("decoding stats: %w", err)
	}
	return stats, nil
}

func renderStats(w io.Writer, stats relayStats) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	table.AppendBulk([][]string{
		{"Instance", stats.Server.InstanceID},
		{"Uptime", stats.Server.Uptime},
		{"Stopping", strconv.FormatBool(stats.Server.Stopping)},
		{"Sessions", strconv.Itoa(stats.Server.Sessions)},
		{"Pool workers", strconv.Itoa(stats.Pool.Workers)},
		{"Pool queued", strconv.Itoa(stats.Pool.Queued)},
		{"RSS (bytes)", strconv.FormatUint(stats.Process.RSSBytes, 10)},
		{"CPU (%)", strconv.FormatFloat(stats.Process.CPUPercent, 'f', 1, 64)},
		{"Goroutines", strconv.Itoa(stats.Process.Goroutines)},
	})
	table.Render()
}
