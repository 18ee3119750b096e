// Package planner contains the rule-based template selection that backs
// the plan wizard. Pure functions, no repository or network access.
package planner

import (
	"github.com/caban7m/GymRat/internal/domain"
)

// SelectTemplate maps the wizard answers to the best template slug.
//
// Priority order (first match wins):
//  1. Session duration <= 30 min -> quick-30 (time constraint wins everything)
//  2. Abs goal -> abs-focused
//  3. Fat loss / endurance -> hiit
//  4. Days per week determines the split:
//     3 days -> full-body
//     4 days -> upper-lower
//     5+ days, beginner -> upper-lower (PPL is too demanding)
//     5+ days, intermediate/advanced -> ppl
//
// Total over the wizard's input domain; every branch returns a slug that
// exists in the seeded catalog.
func SelectTemplate(input domain.AssignmentInput) domain.TemplateSlug {
	// Time constraint first: quick sessions always get quick-30
	if input.SessionDuration <= 30 {
		return domain.SlugQuick30
	}

	if input.Goal == domain.GoalAbs {
		return domain.SlugAbsFocused
	}

	// Fat loss or endurance → HIIT regardless of days
	if input.Goal == domain.GoalFatLoss || input.Goal == domain.GoalEndurance {
		return domain.SlugHIIT
	}

	// Muscle / Strength: choose split based on days available
	switch input.DaysPerWeek {
	case 3:
		return domain.SlugFullBody
	case 4:
		return domain.SlugUpperLower
	}

	// 5 or 6 days
	if input.Level == domain.LevelBeginner {
		return domain.SlugUpperLower
	}
	return domain.SlugPPL
}

// explanations must cover every slug SelectTemplate can produce; adding a
// slug without adding its explanation here is a defect.
var explanations = map[domain.TemplateSlug]string{
	domain.SlugQuick30:    "You only have 30 minutes — Quick 30 keeps it efficient with zero wasted time.",
	domain.SlugAbsFocused: "Focused core work to sculpt and strengthen your midsection.",
	domain.SlugHIIT:       "High-intensity circuits are the fastest route to your fat loss and endurance goals.",
	domain.SlugFullBody:   "Three full-body sessions maximise frequency and are perfect for your schedule.",
	domain.SlugUpperLower: "Four sessions split into upper and lower body strikes the ideal balance for your level.",
	domain.SlugPPL:        "Six sessions using the Push/Pull/Legs split — the standard for serious muscle and strength gains.",
}

// ExplainAssignment returns the human-readable rationale for the template
// SelectTemplate picks for the given input.
func ExplainAssignment(input domain.AssignmentInput) string {
	return explanations[SelectTemplate(input)]
}
