package main

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/emltools/eml-to-gmail/eml"
	"github.com/emltools/eml-to-gmail/filter"
	"github.com/emltools/eml-to-gmail/stats"
)

var (
	statsReportDir     string
	statsTopN          int
	statsRecursive     bool
	statsIncludeHeader []string
	statsIncludeBody   []string
	statsExcludeHeader []string
	statsExcludeBody   []string
)

var statsCmd = &cobra.Command{
	Use:   "stats [path]",
	Short: "Analyse the message files and show statistics",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		fmt.Println("Analyzing messages in:", path)

		f, err := filter.New(filter.Options{
			IncludeHeader: statsIncludeHeader,
			IncludeBody:   statsIncludeBody,
			ExcludeHeader: statsExcludeHeader,
			ExcludeBody:   statsExcludeBody,
		})
		if err != nil {
			return fmt.Errorf("create filter: %w", err)
		}

		counter := make(map[string]map[string]int)
		headersToTrack := []string{"Delivered-To", "Subject", "From", "To"}
		for _, h := range headersToTrack {
			counter[h] = make(map[string]int)
		}

		messageCount := 0
		skippedCount := 0
		unreadableCount := 0
		printStats := func() {
			// ANSI escape code to clear screen and move cursor to top-left
			fmt.Print("\033[H\033[2J")
			totalMessages := messageCount + skippedCount
			var filterPercent float64
			if totalMessages > 0 {
				filterPercent = float64(skippedCount) / float64(totalMessages) * 100
			}
			fmt.Printf("Processed %d messages (skipped %d by filters, %.2f%%)...\n\n", messageCount, skippedCount, filterPercent)
			if unreadableCount > 0 {
				fmt.Printf("Unreadable files: %d\n\n", unreadableCount)
			}

			for _, header := range headersToTrack {
				fmt.Printf("Top %d %s:\n", statsTopN, header)
				stats.PrettyPrintTop(counter[header], statsTopN)
				fmt.Println()
			}
		}

		files, err := eml.Discover(path, statsRecursive)
		if err != nil {
			return fmt.Errorf("discover messages: %w", err)
		}

		err = eml.Stream(files, func(item eml.Item) error {
			if item.ReadErr != nil {
				unreadableCount++
				return nil
			}
			if !f.Allows(item.Raw) {
				skippedCount++
				return nil
			}

			messageCount++
			msg, parseErr := mail.ReadMessage(bytes.NewReader(item.Raw))
			if parseErr != nil {
				return nil
			}
			for _, headerName := range headersToTrack {
				if value := msg.Header.Get(headerName); value != "" {
					counter[headerName][value]++
				}
			}

			if messageCount%250 == 0 {
				printStats()
			}

			return nil
		})
		if err != nil {
			return fmt.Errorf("error reading messages: %w", err)
		}

		// Final print
		printStats()

		if err := saveCSVReports(counter, headersToTrack, statsReportDir, 1000); err != nil {
			return fmt.Errorf("error saving CSV reports: %w", err)
		}

		fmt.Printf("\nReports saved to directory: %s\n", statsReportDir)

		return nil
	},
}

func registerStatsCmd(rootCmd *cobra.Command) {
	statsCmd.Flags().StringVarP(&statsReportDir, "output", "o", ".", "Output directory for CSV reports")
	statsCmd.Flags().IntVarP(&statsTopN, "top", "t", 10, "Number of top items to display in statistics")
	statsCmd.Flags().BoolVarP(&statsRecursive, "recursive", "r", false, "Search for message files recursively in the given directory")
	statsCmd.Flags().StringArrayVar(&statsIncludeHeader, "include-header", nil, "Regex allow-list applied to message headers (mutually exclusive with exclude flags)")
	statsCmd.Flags().StringArrayVar(&statsIncludeBody, "include-body", nil, "Regex allow-list applied to message bodies (mutually exclusive with exclude flags)")
	statsCmd.Flags().StringArrayVar(&statsExcludeHeader, "exclude-header", nil, "Regex block-list applied to message headers (mutually exclusive with include flags)")
	statsCmd.Flags().StringArrayVar(&statsExcludeBody, "exclude-body", nil, "Regex block-list applied to message bodies (mutually exclusive with include flags)")
	rootCmd.AddCommand(statsCmd)
}

func saveCSVReports(counter map[string]map[string]int, headers []string, dir string, limit int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	// Write data for each header category to a separate file
	for _, header := range headers {
		counts := counter[header]

		filename := fmt.Sprintf("report_%s.csv", normalizeHeaderName(header))
		filePath := filepath.Join(dir, filename)

		file, err := os.Create(filePath)
		if err != nil {
			return err
		}

		writer := csv.NewWriter(file)

		if err := writer.Write([]string{"Value", "Count"}); err != nil {
			file.Close()
			return err
		}

		// Sort by count descending
		type pair struct {
			Key   string
			Value int
		}
		var pairs []pair
		for k, v := range counts {
			pairs = append(pairs, pair{k, v})
		}
		sort.Slice(pairs, func(i, j int) bool {
			return pairs[i].Value > pairs[j].Value
		})

		for i := 0; i < limit && i < len(pairs); i++ {
			record := []string{
				pairs[i].Key,
				strconv.Itoa(pairs[i].Value),
			}
			if err := writer.Write(record); err != nil {
				file.Close()
				return err
			}
		}

		writer.Flush()
		file.Close()

		if err := writer.Error(); err != nil {
			return err
		}
	}

	return nil
}

func normalizeHeaderName(header string) string {
	// Convert to lowercase and replace invalid filename chars
	name := strings.ToLower(header)
	name = strings.ReplaceAll(name, "-", "_")
	name = strings.ReplaceAll(name, " ", "_")
	return name
}
