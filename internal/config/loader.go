package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load загружает каталог доменов из YAML файла
func Load(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения файла %s: %w", filename, err)
	}

	var catalog Catalog
	err = yaml.Unmarshal(data, &catalog)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга YAML: %w", err)
	}

	// Валидация каталога
	err = validateCatalog(&catalog)
	if err != nil {
		return nil, fmt.Errorf("ошибка валидации каталога: %w", err)
	}

	return &catalog, nil
}

// validateCatalog проверяет корректность каталога
func validateCatalog(catalog *Catalog) error {
	if len(catalog.Domains) == 0 {
		return fmt.Errorf("каталог должен содержать хотя бы один домен")
	}

	if catalog.CatalogConfig.DefaultDomain == "" {
		return fmt.Errorf("default_domain должен быть задан")
	}

	if _, ok := catalog.DomainByID(catalog.CatalogConfig.DefaultDomain); !ok {
		return fmt.Errorf("default_domain %q отсутствует среди доменов", catalog.CatalogConfig.DefaultDomain)
	}

	seen := make(map[string]bool)
	for i, domain := range catalog.Domains {
		if domain.ID == "" {
			return fmt.Errorf("домен %d должен иметь id", i)
		}

		if seen[domain.ID] {
			return fmt.Errorf("домен %q встречается более одного раза", domain.ID)
		}
		seen[domain.ID] = true

		if domain.Title == "" {
			return fmt.Errorf("домен %q должен иметь title", domain.ID)
		}

		if domain.Rubric == "" {
			return fmt.Errorf("домен %q должен иметь rubric", domain.ID)
		}

		if len(domain.Questions) == 0 {
			return fmt.Errorf("домен %q должен иметь хотя бы один вопрос", domain.ID)
		}

		for j, q := range domain.Questions {
			if q.ID == "" || q.Text == "" {
				return fmt.Errorf("вопрос %d домена %q должен иметь id и text", j, domain.ID)
			}
		}
	}

	return nil
}
