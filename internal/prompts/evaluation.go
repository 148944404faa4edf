package prompts

import (
	"fmt"
	"strings"

	"evalia-interview-bot/internal/rubric"
)

// BuildEvaluationPrompt создает промпт для оценки ответа кандидата по рубрике
func BuildEvaluationPrompt(question, answer string, r rubric.Rubric, domainTitle string) string {
	var prompt strings.Builder

	prompt.WriteString("You are an experienced interviewer evaluating a candidate's spoken answer.\n")
	if domainTitle != "" {
		prompt.WriteString(fmt.Sprintf("The interview domain is: %s.\n", domainTitle))
	}
	prompt.WriteString("\n")

	prompt.WriteString("QUESTION:\n")
	prompt.WriteString(question)
	prompt.WriteString("\n\n")

	prompt.WriteString("CANDIDATE ANSWER (transcribed from speech, minor transcription noise is possible):\n")
	prompt.WriteString(answer)
	prompt.WriteString("\n\n")

	prompt.WriteString("SCORING RUBRIC — score each dimension from 0 to 100:\n")
	for _, d := range r.Dimensions {
		prompt.WriteString(fmt.Sprintf("- %s (weight %.2f): %s\n", d.Name, d.Weight, d.Description))
	}
	prompt.WriteString("\n")

	prompt.WriteString("INSTRUCTIONS:\n")
	prompt.WriteString("1. Score the overall answer from 0 to 100, consistent with the weighted dimensions\n")
	prompt.WriteString("2. Give concise, actionable feedback (2-4 sentences)\n")
	prompt.WriteString("3. List concrete improvement tips and knowledge gaps if any\n")
	prompt.WriteString("4. Return ONLY valid JSON, no markdown, no commentary\n\n")

	prompt.WriteString("ANSWER FORMAT:\n")
	prompt.WriteString(`{
  "score": 0,
  "feedback": "...",
  "dimensions": {`)
	for i, d := range r.Dimensions {
		if i > 0 {
			prompt.WriteString(", ")
		}
		prompt.WriteString(fmt.Sprintf("%q: 0", d.Name))
	}
	prompt.WriteString(`},
  "improvement_tips": ["..."],
  "knowledge_gaps": ["..."]
}`)

	return prompt.String()
}
