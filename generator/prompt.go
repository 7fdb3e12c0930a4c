package generator

import (
	"fmt"
	"strings"
)

const (
	promptWriterInstruction = "You are an expert in writing prompts for creating educational simulations using HTML, CSS, and JavaScript. " +
		"Your task is to generate a complete, step by step, detailed simulation building prompt for an AI that creates interactive simulations used in virtual labs by students. " +
		"Return only the prompt, no additional text or code."

	codeBuilderInstruction = `You are an expert in creating educational simulations using HTML, CSS, and JavaScript. Your task is to generate complete, working code for interactive simulations that can be used in virtual labs. Send the HTML, CSS and JavaScript in one file, with the CSS and JavaScript embedded in the HTML. Include all the code needed to make the simulation work. Only send the code.
Technical Requirements:
- The simulation must be a single HTML file with embedded JavaScript and CSS.
- Use modern JavaScript (ES6+) and CSS3.
- The simulation must be responsive and work on different screen sizes.
- Include clear instructions for users.
- Add appropriate visualizations, controls, and feedback mechanisms.
- Implement proper physics/mathematical models where applicable.
- Include appropriate error handling.`

	refinementInstruction = "You are an expert simulation builder helping to build an educational simulation using HTML, CSS, and JavaScript " +
		"for interactive virtual labs. You modify the code based on user requests. " +
		"When the user asks for changes, provide the updated code in full inside a fenced ```html block."

	// Sent as the assistant side of the opening turn after code generation succeeds.
	generatedAck = "I've generated the simulation code based on your requirements. You can see it in the editor and preview it in the output window. Feel free to ask for any modifications!"

	// Display text used when a reply carried nothing but code.
	codeOnlyReply = "I've updated the code based on your request! Check the editor for changes."
)

var complexityHints = map[Tier]string{
	TierLow:    "keep it focused on one core concept with a few simple controls",
	TierMedium: "cover the main concept and a related variable or two with moderate controls",
	TierHigh:   "model several interacting variables with detailed controls, data readouts and edge cases",
}

var interactivityHints = map[Tier]string{
	TierLow:    "mostly observational, with start/stop/reset controls",
	TierMedium: "students adjust parameters with sliders or inputs and see the effect",
	TierHigh:   "students manipulate objects directly, run experiments and get immediate feedback",
}

// BuildSimulationPrompt renders the instruction that asks a model to write a
// simulation-building prompt. It is a pure template fill.
func BuildSimulationPrompt(req SimulationRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Create a detailed step by step prompt for an interactive HTML, CSS and JavaScript simulation for %s, for the students of %s from the %s department, on the topic of %q.\n\n",
		req.Subject, req.Course, req.Department, req.Name))
	sb.WriteString(fmt.Sprintf("Simulation Name: %s\n\n", req.Name))
	sb.WriteString("Details:\n")
	sb.WriteString(req.Description)
	sb.WriteString("\n\n")
	sb.WriteString("Keep in mind that you are writing this prompt for students who want to learn about this topic.\n\n")
	sb.WriteString("Technical Requirements:\n")
	sb.WriteString(fmt.Sprintf("- Complexity Level: %s%s\n", req.Complexity, tierHint(complexityHints, req.Complexity)))
	sb.WriteString(fmt.Sprintf("- Interactivity Level: %s%s\n", req.Interactivity, tierHint(interactivityHints, req.Interactivity)))
	return sb.String()
}

func tierHint(hints map[Tier]string, t Tier) string {
	if h, ok := hints[t]; ok {
		return " (" + h + ")"
	}
	return ""
}

// promptGenerationMessages is the message pair for the prompt step.
func promptGenerationMessages(rendered string) []Message {
	return []Message{
		{Role: RoleSystem, Content: promptWriterInstruction},
		{Role: RoleUser, Content: rendered},
	}
}

// codeGenerationMessages is the message pair for the code step.
func codeGenerationMessages(prompt string) []Message {
	return []Message{
		{Role: RoleSystem, Content: codeBuilderInstruction},
		{Role: RoleUser, Content: prompt},
	}
}
