package parser

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// BrandRule maps a part-number prefix pattern to a manufacturer.
type BrandRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// CategoryRule maps description keywords to a category.
type CategoryRule struct {
	Name     string
	Keywords []string
}

// Rules are evaluated in order; the first match wins.
type Rules struct {
	Brands     []BrandRule
	Categories []CategoryRule
}

var defaultBrandPatterns = []struct {
	name    string
	pattern string
}{
	{"Toyota", `^(04|11|12|13|15|16|22|23|28|43|48|51|52|53|57|67|75|76|81|85|87|90)`},
	{"Honda", `^(17|18|19|30|31|32|33|34|35|36|37|38|39)`},
	{"Mitsubishi", `(?i)^(MD|MR|MN|MB)`},
	{"Mercedes", `(?i)^(A|B|C|E|S|GL|ML|GLE|GLS)\d{3}`},
	{"BMW", `^(11|12|13|14|15|16|17|18|31|32|33|34|35|36|37|38|41|42|43|44|45|46|47|48|51|52|53|54|55|56|57|58|61|62|63|64|65|66|67|68|71|72|73|74|75|76|77|78|81|82|83|84|85|86|87|88)`},
	{"Volkswagen", `(?i)^(VW|1K|5K|3C|5N)`},
	{"Audi", `(?i)^(8K|8P|8V|4G|4F)`},
	{"Nissan", `^(21|24|25|26|27|40|41|42|44|45|46|47|49)`},
	{"Mazda", `(?i)^(B|C|D|E|F|G|H|L|N|P|R|S|T|U|V|W|Y|Z)\d{3}`},
	{"Isuzu", `^(8-9|1-5)`},
	{"Suzuki", `^(09|33|34|35|36|37|38|39)`},
	{"Scania", `^(14|15|16|17|18|19|20|21|22|23|24|25|26|27|28|29)`},
	{"Ford", `(?i)^(F|E|C|D|G|H|J|K|L|M|N|P|R|S|T|U|V|W|Y|Z)\d{2}`},
	{"Mopar", `^(04|05|06|52|53|55|68)`},
}

// Gaskets & Seals is checked first so seal kits such as "BOOT KIT, FR DRIVE"
// are not swallowed by the broader drivetrain keywords.
var defaultCategoryKeywords = []CategoryRule{
	{Name: "Gaskets & Seals", Keywords: []string{"gasket", "seal", "o-ring", "boot"}},
	{Name: "Engine Components", Keywords: []string{"piston", "cylinder", "valve", "camshaft", "crankshaft", "timing", "chain", "belt"}},
	{Name: "Transmission & Drivetrain", Keywords: []string{"transmission", "clutch", "drive", "axle", "differential", "cv joint"}},
	{Name: "Suspension & Steering", Keywords: []string{"shock", "strut", "spring", "arm", "knuckle", "tie rod", "ball joint", "stabilizer"}},
	{Name: "Brake System", Keywords: []string{"brake", "caliper", "rotor", "pad", "drum", "master cylinder"}},
	{Name: "Electrical & Ignition", Keywords: []string{"coil", "sensor", "switch", "relay", "alternator", "starter", "battery"}},
	{Name: "Cooling System", Keywords: []string{"radiator", "thermostat", "water pump", "hose", "coolant"}},
	{Name: "Fuel System", Keywords: []string{"fuel pump", "injector", "filter", "tank", "line"}},
	{Name: "Exhaust System", Keywords: []string{"muffler", "catalytic", "exhaust", "manifold", "pipe"}},
	{Name: "Body Panels & Exterior", Keywords: []string{"bumper", "fender", "hood", "door", "panel", "grille", "mirror"}},
	{Name: "Interior Components", Keywords: []string{"seat", "dashboard", "console", "trim", "carpet"}},
	{Name: "Lighting", Keywords: []string{"headlight", "taillight", "lamp", "bulb", "lens"}},
	{Name: "Filters & Fluids", Keywords: []string{"oil filter", "air filter", "cabin filter", "oil", "fluid"}},
	{Name: "Bearings & Bushings", Keywords: []string{"bearing", "bush", "bushing"}},
	{Name: "Fasteners & Hardware", Keywords: []string{"bolt", "nut", "screw", "clip", "bracket"}},
	{Name: "Lubricants", Keywords: []string{"oil", "grease", "lubricant", "fluid"}},
}

// DefaultRules returns the built-in brand and category tables.
func DefaultRules() Rules {
	brands := make([]BrandRule, 0, len(defaultBrandPatterns))
	for _, item := range defaultBrandPatterns {
		brands = append(brands, BrandRule{Name: item.name, Pattern: regexp.MustCompile(item.pattern)})
	}

	categories := make([]CategoryRule, 0, len(defaultCategoryKeywords))
	for _, rule := range defaultCategoryKeywords {
		categories = append(categories, CategoryRule{
			Name:     rule.Name,
			Keywords: append([]string(nil), rule.Keywords...),
		})
	}
	return Rules{Brands: brands, Categories: categories}
}

type rulesFile struct {
	Brands []struct {
		Name    string `yaml:"name"`
		Pattern string `yaml:"pattern"`
	} `yaml:"brands"`
	Categories []struct {
		Name     string   `yaml:"name"`
		Keywords []string `yaml:"keywords"`
	} `yaml:"categories"`
}

// LoadRules reads a YAML rules file. Sections left out of the file keep the defaults.
func LoadRules(path string) (Rules, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read parser rules: %w", err)
	}
	return ParseRules(raw)
}

func ParseRules(raw []byte) (Rules, error) {
	var file rulesFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Rules{}, fmt.Errorf("decode parser rules: %w", err)
	}

	rules := DefaultRules()
	if len(file.Brands) > 0 {
		rules.Brands = make([]BrandRule, 0, len(file.Brands))
		for i, item := range file.Brands {
			name := strings.TrimSpace(item.Name)
			if name == "" || strings.TrimSpace(item.Pattern) == "" {
				return Rules{}, fmt.Errorf("brand rule %d: name and pattern are required", i)
			}
			pattern, err := regexp.Compile(item.Pattern)
			if err != nil {
				return Rules{}, fmt.Errorf("brand rule %q: %w", name, err)
			}
			rules.Brands = append(rules.Brands, BrandRule{Name: name, Pattern: pattern})
		}
	}

	if len(file.Categories) > 0 {
		rules.Categories = make([]CategoryRule, 0, len(file.Categories))
		for i, item := range file.Categories {
			name := strings.TrimSpace(item.Name)
			if name == "" || len(item.Keywords) == 0 {
				return Rules{}, fmt.Errorf("category rule %d: name and keywords are required", i)
			}
			keywords := make([]string, 0, len(item.Keywords))
			for _, keyword := range item.Keywords {
				if keyword = strings.ToLower(strings.TrimSpace(keyword)); keyword != "" {
					keywords = append(keywords, keyword)
				}
			}
			rules.Categories = append(rules.Categories, CategoryRule{Name: name, Keywords: keywords})
		}
	}
	return rules, nil
}
