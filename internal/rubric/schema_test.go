package rubric

import (
	"math"
	"testing"
)

const validSchemaYAML = `
rubrics:
  - id: "technical"
    title: "Техническое интервью"
    dimensions:
      - name: "correctness"
        weight: 0.6
        description: "Точность ответа"
      - name: "clarity"
        weight: 0.4
        description: "Ясность изложения"
  - id: "hr"
    title: "HR интервью"
    dimensions:
      - name: "communication"
        weight: 1.0
`

func TestParseYAMLSchema(t *testing.T) {
	rubrics, err := ParseYAMLSchema([]byte(validSchemaYAML))
	if err != nil {
		t.Fatalf("ParseYAMLSchema: %v", err)
	}

	if len(rubrics) != 2 {
		t.Fatalf("ожидалось 2 рубрики, получено %d", len(rubrics))
	}

	technical, ok := rubrics["technical"]
	if !ok {
		t.Fatal("рубрика technical не найдена")
	}
	if len(technical.Dimensions) != 2 {
		t.Errorf("ожидалось 2 измерения, получено %d", len(technical.Dimensions))
	}
	if technical.Dimensions[0].Name != "correctness" || technical.Dimensions[0].Weight != 0.6 {
		t.Errorf("первое измерение неверно: %+v", technical.Dimensions[0])
	}
	if math.Abs(technical.TotalWeight()-1.0) > 1e-9 {
		t.Errorf("суммарный вес: %f", technical.TotalWeight())
	}
}

func TestParseYAMLSchemaErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"пустая схема", `rubrics: []`},
		{"битый YAML", `rubrics: [`},
		{
			"рубрика без id",
			`
rubrics:
  - title: "Без id"
    dimensions:
      - name: "x"
        weight: 1.0
`,
		},
		{
			"рубрика без измерений",
			`
rubrics:
  - id: "empty"
    dimensions: []
`,
		},
		{
			"неположительный вес",
			`
rubrics:
  - id: "bad"
    dimensions:
      - name: "x"
        weight: 0
`,
		},
		{
			"дубликат id",
			`
rubrics:
  - id: "dup"
    dimensions:
      - name: "x"
        weight: 1.0
  - id: "dup"
    dimensions:
      - name: "y"
        weight: 1.0
`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ParseYAMLSchema([]byte(tc.yaml)); err == nil {
				t.Error("ожидалась ошибка")
			}
		})
	}
}
