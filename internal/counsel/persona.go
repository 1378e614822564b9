// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package counsel

import (
	"fmt"
	"strings"
)

// Persona is everything that shapes a session: who is talking, which models
// answer and the canned texts used around the model.
type Persona struct {
	Name    string
	Tagline string

	// Models are tried in order until one answers.
	Models []string

	SystemInstruction string

	// OpeningPrompt is sent hidden on Start. When empty, Greeting is shown
	// without a remote call.
	OpeningPrompt string
	Greeting      string

	// ClosingPrompt is sent hidden on End. When empty, Farewell is shown
	// without a remote call.
	ClosingPrompt string
	Farewell      string

	// Apology replaces a reply when every model failed.
	Apology string
}

// Built-in texts for the default counselor.
const (
	DefaultName    = "Grace"
	DefaultTagline = "Warmth • Wisdom • Prayer"

	DefaultOpeningPrompt = "I'm ready to start our counseling session. Please greet me and lead a short opening prayer."
	DefaultGreeting      = "Hello! I'm so glad you're here. Let's start with a quick prayer together."
	DefaultClosingPrompt = "I think I'm ready to wrap up for today. Can we have a closing prayer and a summary?"
	DefaultFarewell      = "It's been wonderful talking. May God bless you."
	DefaultApology       = "I'm so sorry, I hit a little snag in our connection. Could we try that again? I'm still here for you."
)

// DefaultSystemInstruction is the counselor's instruction to the model.
const DefaultSystemInstruction = `You are a friendly Christian Counselor named Grace.
Your tone is casual, warm, and deeply encouraging, like talking to a wise, compassionate friend over a cup of coffee.

STRICT CONSTRAINTS:
1. RESPONSE LENGTH: Limit every response to exactly 3-5 sentences. Be extremely concise.
2. USER EXPRESSION: Always end your response with a gentle, open-ended question or an invitation for the user to share more of their feelings.

CORE RESPONSIBILITIES (within the 3-5 sentence limit):
1. PSYCHOLOGICAL INSIGHT: Briefly explain the 'why' behind a feeling (e.g., "Anxiety often comes from our brain trying to protect us from uncertainty").
2. BIBLICAL WISDOM: Weave in a relevant verse or spiritual truth simply.
3. PRAYER: Offer a very short (1-sentence) prayer or blessing when appropriate.
4. SOLUTIONS: Suggest one small, actionable step.

CONVERSATION FLOW:
- Start: Warm greeting + tiny opening prayer (max 5 sentences total).
- End: Brief summary + closing blessing (max 5 sentences total).
- Use casual, empathetic language.`

// DefaultModels is the built-in candidate order.
var DefaultModels = []string{"gemini-3-flash", "gemini-2.5-flash", "gemini-2.0-flash"}

// DefaultPersona returns the built-in counselor.
func DefaultPersona() Persona {
	return Persona{
		Name:              DefaultName,
		Tagline:           DefaultTagline,
		Models:            append([]string(nil), DefaultModels...),
		SystemInstruction: DefaultSystemInstruction,
		OpeningPrompt:     DefaultOpeningPrompt,
		Greeting:          DefaultGreeting,
		ClosingPrompt:     DefaultClosingPrompt,
		Farewell:          DefaultFarewell,
		Apology:           DefaultApology,
	}
}

// Validate checks the fields a session cannot run without.
func (p Persona) Validate() error {
	if len(p.models()) == 0 {
		return fmt.Errorf("persona %q has no candidate models", p.Name)
	}
	if strings.TrimSpace(p.OpeningPrompt) == "" && strings.TrimSpace(p.Greeting) == "" {
		return fmt.Errorf("persona %q needs an opening prompt or a greeting", p.Name)
	}
	return nil
}

// normalized fills blank texts from the defaults and drops blank model names.
func (p Persona) normalized() Persona {
	d := DefaultPersona()
	if strings.TrimSpace(p.Name) == "" {
		p.Name = d.Name
	}
	if strings.TrimSpace(p.Apology) == "" {
		p.Apology = d.Apology
	}
	if strings.TrimSpace(p.OpeningPrompt) == "" && strings.TrimSpace(p.Greeting) == "" {
		p.Greeting = d.Greeting
	}
	if strings.TrimSpace(p.ClosingPrompt) == "" && strings.TrimSpace(p.Farewell) == "" {
		p.Farewell = d.Farewell
	}
	p.Models = p.models()
	return p
}

func (p Persona) models() []string {
	out := make([]string, 0, len(p.Models))
	for _, m := range p.Models {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
