package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kokorolog/feedback-service/internal/timewindow"
)

var windowReferenceTime string

var windowCmd = &cobra.Command{
	Use:   "window",
	Short: "Resolve the diary time window for a reference instant",
	Long: `Prints the 24-hour diary window (anchored at 04:00 JST) that a batch
run at the given instant would cover. Useful for verifying which entries a
replayed run will pick up.`,
	RunE: showWindow,
}

func init() {
	rootCmd.AddCommand(windowCmd)

	windowCmd.Flags().StringVar(&windowReferenceTime, "reference-time", "", "reference instant, RFC 3339 (default: now)")
}

func showWindow(cmd *cobra.Command, args []string) error {
	reference := time.Now()
	if windowReferenceTime != "" {
		parsed, err := time.Parse(time.RFC3339, windowReferenceTime)
		if err != nil {
			return fmt.Errorf("invalid --reference-time: %w", err)
		}
		reference = parsed
	}

	window := timewindow.Resolve(reference)

	fmt.Printf("reference:    %s\n", reference.Format(time.RFC3339))
	fmt.Printf("start (UTC):  %s\n", window.Start.Format(time.RFC3339))
	fmt.Printf("end (UTC):    %s\n", window.End.Format(time.RFC3339))
	fmt.Printf("start (JST):  %s\n", window.StartJST.Format(time.RFC3339))
	fmt.Printf("end (JST):    %s\n", window.EndJST.Format(time.RFC3339))
	fmt.Printf("duration:     %s\n", window.Duration())

	if violations := timewindow.Validate(window, time.Now()); len(violations) > 0 {
		fmt.Println("violations:")
		for _, v := range violations {
			fmt.Printf("  - %s\n", v)
		}
	}
	return nil
}
