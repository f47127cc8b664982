// Package numbered recognizes urban facilities referred to by category and
// number, such as "школа № 6" or "детский сад 12".
package numbered

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Dictionary maps a canonical category name to the surface forms that
// denote it in text. Forms are matched case-insensitively.
type Dictionary map[string][]string

// Categories returns the category names in sorted order.
func (d Dictionary) Categories() []string {
	out := make([]string, 0, len(d))
	for c := range d {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// DefaultDictionary returns the built-in Russian facility dictionary.
func DefaultDictionary() Dictionary {
	return Dictionary{
		"школа":                  {"школа", "школы", "школе", "школу", "школой", "сош", "гбоу сош"},
		"профессиональная школа": {"профессиональная школа", "профессиональной школы", "профессиональной школе", "профшкола", "профшколы"},
		"гимназия":               {"гимназия", "гимназии", "гимназию", "гимназией"},
		"лицей":                  {"лицей", "лицея", "лицее", "лицеем"},
		"детский сад":            {"детский сад", "детского сада", "детском саду", "детсад", "детсада", "д/с"},
		"колледж":                {"колледж", "колледжа", "колледже"},
		"училище":                {"училище", "училища"},
		"больница":               {"больница", "больницы", "больнице", "больницу", "горбольница"},
		"поликлиника":            {"поликлиника", "поликлиники", "поликлинике", "поликлинику"},
		"детская поликлиника":    {"детская поликлиника", "детской поликлиники", "детской поликлинике"},
		"роддом":                 {"роддом", "роддома", "родильный дом", "родильного дома"},
		"аптека":                 {"аптека", "аптеки", "аптеке"},
		"библиотека":             {"библиотека", "библиотеки", "библиотеке"},
		"пожарная часть":         {"пожарная часть", "пожарной части", "пч"},
		"отделение полиции":      {"отделение полиции", "отдел полиции", "оп"},
		"почтовое отделение":     {"почтовое отделение", "отделение почты", "почта"},
		"кладбище":               {"кладбище", "кладбища"},
		"трамвайный парк":        {"трамвайный парк", "трампарк"},
		"автобусный парк":        {"автобусный парк", "автопарк"},
	}
}

type dictionaryFile struct {
	Categories Dictionary `yaml:"categories"`
}

// LoadDictionary reads a dictionary from a YAML file of the form
//
//	categories:
//	  школа: [школа, школы]
func LoadDictionary(path string) (Dictionary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "numbered: read dictionary %s", path)
	}

	var f dictionaryFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrap(err, "numbered: parse dictionary")
	}
	if len(f.Categories) == 0 {
		return nil, eris.Errorf("numbered: dictionary %s has no categories", path)
	}

	for cat, forms := range f.Categories {
		if strings.TrimSpace(cat) == "" {
			return nil, eris.New("numbered: dictionary has an empty category name")
		}
		if len(forms) == 0 {
			return nil, eris.Errorf("numbered: category %q has no forms", cat)
		}
	}

	return f.Categories, nil
}
