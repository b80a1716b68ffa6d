package main

import (
	"fmt"

	"github.com/fatih/color"

	"permgate/internal/domain"
)

var (
	passLabel = color.New(color.FgGreen, color.Bold).Sprint("[PASS]")
	failLabel = color.New(color.FgRed, color.Bold).Sprint("[FAIL]")
	warnLabel = color.New(color.FgYellow, color.Bold).Sprint("[WARN]")
	dim       = color.New(color.Faint).SprintFunc()
)

func printPass(check, detail string) {
	fmt.Printf("  %s %-20s %s\n", passLabel, check, detail)
}

func printFail(check, detail string) {
	fmt.Printf("  %s %-20s %s\n", failLabel, check, detail)
}

func printWarn(check, detail string) {
	fmt.Printf("  %s %-20s %s\n", warnLabel, check, detail)
}

// printValidation renders a validation result and reports whether it is valid.
func printValidation(r domain.ValidationResult) bool {
	for _, e := range r.Errors {
		printFail(string(e.Code), fmt.Sprintf("%s %s", e.Message, dim("("+e.Field+")")))
	}
	for _, w := range r.Warnings {
		detail := w.Message
		if w.Recommendation != "" {
			detail += " " + dim("-> "+w.Recommendation)
		}
		printWarn(string(w.Code), detail)
	}
	if r.Valid {
		printPass("Valid", fmt.Sprintf("security score %d/100", r.SecurityScore))
	}
	fmt.Printf("\nResults: %d errors, %d warnings, security score %d\n", len(r.Errors), len(r.Warnings), r.SecurityScore)
	return r.Valid
}

// printDecision renders one enforcement result on a single line.
func printDecision(env domain.Envelope, r domain.EnforcementResult) {
	if r.Allowed {
		fmt.Printf("%s %s %s\n", color.GreenString("ALLOW"), env.Type, env.Resource)
		return
	}
	fmt.Printf("%s %s %s: %s\n", color.RedString("DENY"), env.Type, env.Resource, r.Reason)
	for _, v := range r.Violations[1:] {
		fmt.Printf("      %s\n", dim(v.Message))
	}
	for _, s := range r.Suggestions {
		fmt.Printf("      %s\n", dim("hint: "+s))
	}
}
