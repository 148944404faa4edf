package prompts

import (
	"fmt"
	"strings"

	"evalia-interview-bot/internal/config"
)

// BuildDomainPrompt создает промпт для классификации описания вакансии
// по доменам каталога
func BuildDomainPrompt(jobDescription string, domains []config.Domain) string {
	var prompt strings.Builder

	prompt.WriteString("Analyze the following job description and predict the most appropriate interview domain.\n")
	prompt.WriteString("Choose EXACTLY ONE identifier from this list:\n")
	for _, d := range domains {
		prompt.WriteString(fmt.Sprintf("- %s (%s)\n", d.ID, d.Title))
	}
	prompt.WriteString("\n")
	prompt.WriteString("Return ONLY the identifier. Do NOT include punctuation, explanation, or extra text.\n\n")
	prompt.WriteString("Job Description:\n")
	prompt.WriteString(jobDescription)

	return prompt.String()
}
