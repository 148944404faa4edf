package rubric

import (
	"fmt"

	"gopkg.in/yaml.v2"
)

// Dimension представляет одно измерение рубрики оценки
type Dimension struct {
	Name        string  `yaml:"name"`
	Weight      float64 `yaml:"weight"`
	Description string  `yaml:"description"`
}

// Rubric представляет рубрику оценки ответа
type Rubric struct {
	ID         string      `yaml:"id"`
	Title      string      `yaml:"title"`
	Dimensions []Dimension `yaml:"dimensions"`
}

type schemaFile struct {
	Rubrics []Rubric `yaml:"rubrics"`
}

// ParseYAMLSchema парсит набор рубрик из YAML
func ParseYAMLSchema(data []byte) (map[string]Rubric, error) {
	var file schemaFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML схемы: %w", err)
	}

	if len(file.Rubrics) == 0 {
		return nil, fmt.Errorf("схема не содержит ни одной рубрики")
	}

	rubrics := make(map[string]Rubric, len(file.Rubrics))
	for _, r := range file.Rubrics {
		if err := r.Validate(); err != nil {
			return nil, err
		}
		if _, exists := rubrics[r.ID]; exists {
			return nil, fmt.Errorf("рубрика %q встречается более одного раза", r.ID)
		}
		rubrics[r.ID] = r
	}

	return rubrics, nil
}

// Validate проверяет корректность рубрики
func (r Rubric) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("рубрика должна иметь id")
	}

	if len(r.Dimensions) == 0 {
		return fmt.Errorf("рубрика %q должна иметь хотя бы одно измерение", r.ID)
	}

	for i, d := range r.Dimensions {
		if d.Name == "" {
			return fmt.Errorf("измерение %d рубрики %q должно иметь name", i, r.ID)
		}
		if d.Weight <= 0 {
			return fmt.Errorf("измерение %q рубрики %q должно иметь положительный weight", d.Name, r.ID)
		}
	}

	return nil
}

// TotalWeight возвращает сумму весов измерений
func (r Rubric) TotalWeight() float64 {
	var total float64
	for _, d := range r.Dimensions {
		total += d.Weight
	}
	return total
}
