package plan

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// ExecutionSteps emits the fixed step template. The budget allocation step
// is included only when budget > 0.
func ExecutionSteps(customers, segments int, budget float64) []Step {
	steps := []Step{
		{
			Number:            1,
			Action:            "enrich_customer_data",
			Description:       fmt.Sprintf("Enrich CRM data for %d target customers", customers),
			Reasoning:         "Ensure complete customer profiles for personalization",
			EstimatedDuration: 500 * time.Millisecond,
			Dependencies:      []int{},
		},
		{
			Number:            2,
			Action:            "analyze_segments",
			Description:       fmt.Sprintf("Deep analysis of %d target segments", segments),
			Reasoning:         "Understand segment-specific pain points and preferences",
			EstimatedDuration: 300 * time.Millisecond,
			Dependencies:      []int{1},
		},
		{
			Number:            3,
			Action:            "generate_campaign_content",
			Description:       "Generate personalized campaign ideas and messaging",
			Reasoning:         "Create resonant content grounded in retrieved customer context",
			EstimatedDuration: 2000 * time.Millisecond,
			Dependencies:      []int{2},
		},
		{
			Number:            4,
			Action:            "optimize_channel_mix",
			Description:       "Determine optimal channel strategy",
			Reasoning:         "Select channels based on customer engagement history",
			EstimatedDuration: 400 * time.Millisecond,
			Dependencies:      []int{2},
		},
	}
	if budget > 0 {
		steps = append(steps, Step{
			Number:            5,
			Action:            "allocate_budget",
			Description:       printer.Sprintf("Optimize $%.2f budget allocation", budget),
			Reasoning:         "Distribute budget across channels for maximum ROI",
			EstimatedDuration: 300 * time.Millisecond,
			Dependencies:      []int{4},
		})
	}
	steps = append(steps, Step{
		Number:            6,
		Action:            "assemble_campaign",
		Description:       "Assemble final campaign with all components",
		Reasoning:         "Combine all elements into cohesive campaign",
		EstimatedDuration: 200 * time.Millisecond,
		Dependencies:      []int{3, 4},
	})
	return steps
}
