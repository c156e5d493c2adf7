package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"

	"demandwave/internal/cli"
	"demandwave/internal/market"
)

var (
	accent  = color.New(color.FgCyan, color.Bold)
	success = color.New(color.FgGreen, color.Bold)
	warn    = color.New(color.FgYellow, color.Bold)
	danger  = color.New(color.FgRed, color.Bold)
	neutral = color.New(color.FgHiWhite)
)

func printHeader(text string) {
	accent.Println(text)
}

func printLine(label, value string) {
	neutral.Printf("  %-14s %s\n", label+":", value)
}

func printWarn(text string) {
	warn.Println(text)
}

func printSchedule(last *time.Time, next time.Time, interval string) {
	printHeader("Wave schedule")
	if last != nil {
		printLine("Last wave", last.Format(time.RFC3339))
	}
	printLine("Next wave", next.Format(time.RFC3339))
	printLine("Interval", interval)
	if until := time.Until(next); until > 0 {
		printLine("Due in", until.Round(time.Second).String())
	} else {
		printWarn("Next wave is overdue.")
	}
}

func printWaveSummary(w cli.WaveSummary) {
	printHeader("Wave " + w.WaveID)
	printLine("Completed", w.CompletedAt.Format("2006-01-02 15:04:05"))
	printLine("Spent", fmt.Sprintf("%.2f credits", w.SpentCredits))
	printLine("Items", fmt.Sprintf("%d across %d products / %d companies",
		w.ItemsPurchased, w.DistinctProducts, w.DistinctCompanies))
	printLine("Candidates", fmt.Sprintf("%d evaluated, %d filtered",
		w.CandidatesEvaluated, w.CandidatesFiltered))
	if w.FailedPurchases > 0 {
		danger.Printf("  %-14s %d of %d purchases failed\n", "Failures:", w.FailedPurchases, w.PlannedPurchases)
		for _, e := range w.Errors {
			danger.Printf("    - %s\n", e)
		}
	} else {
		success.Printf("  %-14s all %d purchases applied\n", "Result:", w.SuccessfulPurchases)
	}
}

func printWave(m market.WaveMetrics) {
	printHeader("Wave " + m.WaveID)
	printLine("Completed", m.CompletedAt.Format("2006-01-02 15:04:05"))
	printLine("Spent", fmt.Sprintf("%.2f credits", market.MicrosToCredits(m.TotalSpentMicros)))
	printLine("Items", fmt.Sprintf("%d across %d products / %d companies",
		m.ItemsPurchased, m.DistinctProducts, m.DistinctCompanies))
	printLine("Candidates", fmt.Sprintf("%d evaluated, %d filtered",
		m.CandidatesEvaluated, m.CandidatesFiltered))
	if m.FailedPurchases > 0 {
		danger.Printf("  %-14s %d of %d purchases failed\n", "Failures:", m.FailedPurchases, m.PlannedPurchases)
		for _, e := range m.Errors {
			danger.Printf("    - %s\n", e)
		}
	} else {
		success.Printf("  %-14s all %d purchases applied\n", "Result:", m.SuccessfulPurchases)
	}
}
