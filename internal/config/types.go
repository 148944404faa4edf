package config

// Catalog представляет каталог доменов интервью
type Catalog struct {
	CatalogConfig CatalogConfig `yaml:"catalog_config"`
	Domains       []Domain      `yaml:"domains"`
}

// CatalogConfig содержит общие настройки каталога
type CatalogConfig struct {
	DefaultDomain string `yaml:"default_domain"`
}

// Domain представляет один домен интервью с банком вопросов
type Domain struct {
	ID        string     `yaml:"id"`
	Title     string     `yaml:"title"`
	Keywords  []string   `yaml:"keywords"`
	Rubric    string     `yaml:"rubric"`
	Questions []Question `yaml:"questions"`
}

// Question представляет один вопрос из банка вопросов домена
type Question struct {
	ID   string `yaml:"id"`
	Text string `yaml:"text"`
}

// Методы для удобного доступа к каталогу
func (c *Catalog) DomainByID(id string) (Domain, bool) {
	for _, d := range c.Domains {
		if d.ID == id {
			return d, true
		}
	}
	return Domain{}, false
}

// Default возвращает домен по умолчанию
func (c *Catalog) Default() Domain {
	d, _ := c.DomainByID(c.CatalogConfig.DefaultDomain)
	return d
}

func (c *Catalog) GetTotalDomains() int {
	return len(c.Domains)
}
